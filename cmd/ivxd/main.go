// Command ivxd wires the indexing and search core into a standalone
// process: config, logging, GOMAXPROCS tuning, durable directory, document
// writer, and the search HTTP surface. Grounded on the teacher's
// cmd/components wiring pattern, adapted from a multi-role distributed
// binary down to a single-process entrypoint (spec.md §1 Non-goals exclude
// distributed coordination).
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	_ "go.uber.org/automaxprocs"
	"go.uber.org/zap"

	"github.com/ivxsearch/ivx/internal/config"
	"github.com/ivxsearch/ivx/internal/docwriter"
	"github.com/ivxsearch/ivx/internal/log"
	"github.com/ivxsearch/ivx/internal/searchapi"
	"github.com/ivxsearch/ivx/internal/storage"
)

func main() {
	base := config.NewBaseTable(os.Getenv("IVX_CONFIG_FILE"))
	base.Init()
	params := config.NewComponentParam(base)

	if err := log.Init(log.Config{
		Level:  base.LoadWithDefault("log.level", "info"),
		Format: base.LoadWithDefault("log.format", "console"),
	}); err != nil {
		panic(err)
	}
	defer log.Sync()

	dir, err := openDirectory(params.Dir)
	if err != nil {
		log.Fatal("failed to open directory", zap.Error(err))
	}
	defer dir.Close()

	fields, err := openStoredFieldsBackend(params.Fields)
	if err != nil {
		log.Fatal("failed to open stored fields backend", zap.Error(err))
	}
	if closer, ok := fields.(interface{ Close() error }); ok {
		defer closer.Close()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	writer, err := docwriter.New(ctx, dir, docwriter.Config{
		RAMBufferSizeBytes:  params.Flush.RAMBufferSizeBytes,
		MaxBufferedDocs:     params.Flush.MaxBufferedDocs,
		StallRAMBytes:       params.Flush.StallRAMBytes,
		MaxThreadStates:     params.Flush.MaxThreadStates,
		StoredFieldsBackend: fields,
	})
	if err != nil {
		log.Fatal("failed to start document writer", zap.Error(err))
	}
	defer writer.Close()

	go logEvents(writer)

	idx := &liveIndex{writer: writer}
	router := searchapi.NewRouter(idx)
	srv := &http.Server{Addr: base.LoadWithDefault("server.addr", ":8080"), Handler: router}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("http server exited", zap.Error(err))
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	log.Info("shutting down")
	_ = srv.Shutdown(ctx)
}

func openDirectory(cfg config.DirectoryParam) (storage.Directory, error) {
	switch cfg.Backend {
	case "minio":
		return storage.NewMinioDirectory(context.Background(), cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioBucket, "", cfg.MinioUseSSL)
	default:
		return storage.NewFSDirectory(cfg.FSRoot)
	}
}

func openStoredFieldsBackend(cfg config.StoredFieldsParam) (storage.StoredFieldsBackend, error) {
	switch cfg.Backend {
	case "rocks":
		return storage.NewRocksStoredFieldsBackend(cfg.RocksPath)
	default:
		return storage.FlatStoredFieldsBackend{}, nil
	}
}

func logEvents(w *docwriter.Writer) {
	for ev := range w.Events() {
		log.Debug("docwriter event", zap.Int("kind", int(ev.Kind)))
	}
}
