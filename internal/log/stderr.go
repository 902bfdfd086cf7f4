package log

import "os"

func stderrWrite(p []byte) (int, error) { return os.Stderr.Write(p) }
