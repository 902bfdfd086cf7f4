package storage

import (
	"context"
	"sync"

	"github.com/ivxsearch/ivx/internal/ivxerrors"
)

// CommitFileName is the name of the catalog's commit point, listing the
// segments live in the index as of the last successful Commit — Lucene's
// segments_N generalized to a single rewritten file rather than a
// generation sequence, since cross-process multi-generation recovery is
// out of scope (spec.md §1 Non-goals).
const CommitFileName = "segments.gen"

const (
	catalogCodecName   = "IvxSegmentsCatalog"
	catalogMinVersion  = 1
	catalogCurrVersion = 1
)

// Catalog is the in-process, mutex-guarded registry of published segments
// (spec.md §6 "Segment storage" supplemental component) plus the durable
// commit point recording them. The flush-control/ticket-queue pipeline adds
// a segment to the catalog only after its ticket has been published in
// order, so catalog membership always reflects flush order.
type Catalog struct {
	dir Directory

	mu       sync.RWMutex
	segments map[string]*SegmentInfo
}

// NewCatalog loads any existing commit point under dir, or starts empty if
// none exists yet.
func NewCatalog(ctx context.Context, dir Directory) (*Catalog, error) {
	c := &Catalog{dir: dir, segments: make(map[string]*SegmentInfo)}
	if err := c.load(ctx); err != nil && !ivxerrors.Is(err, ErrNoCommitPoint) {
		return nil, err
	}
	return c, nil
}

// ErrNoCommitPoint is returned by Catalog.load when segments.gen does not
// exist yet — an empty, fresh directory. NewCatalog treats it as an empty
// catalog rather than an error.
var ErrNoCommitPoint = ivxerrors.New("no commit point present")

func (c *Catalog) load(ctx context.Context) error {
	names, err := c.dir.ListAll(ctx)
	if err != nil {
		return err
	}
	found := false
	for _, n := range names {
		if n == CommitFileName {
			found = true
			break
		}
	}
	if !found {
		return ErrNoCommitPoint
	}

	in, err := c.dir.OpenInput(ctx, CommitFileName)
	if err != nil {
		return err
	}
	defer in.Close()

	checkIn, err := in.Clone()
	if err != nil {
		return err
	}
	defer checkIn.Close()
	if _, err := ChecksumEntireFile(checkIn); err != nil {
		return err
	}

	if _, err := CheckHeader(in, catalogCodecName, catalogMinVersion, catalogCurrVersion); err != nil {
		return err
	}
	count, err := in.ReadUint32()
	if err != nil {
		return err
	}
	for i := uint32(0); i < count; i++ {
		name, err := in.ReadString()
		if err != nil {
			return err
		}
		info, err := ReadSegmentInfo(ctx, c.dir, name)
		if err != nil {
			return err
		}
		c.segments[name] = info
	}
	return nil
}

// Publish adds info to the catalog. Callers are responsible for only
// calling this with segments whose tickets have already been published in
// order (internal/ticketqueue).
func (c *Catalog) Publish(info *SegmentInfo) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.segments[info.Name] = info
}

// Drop removes a segment from the catalog, e.g. after a merge or a
// tombstone-only delete has folded it away.
func (c *Catalog) Drop(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.segments, name)
}

// Segments returns a stable snapshot of all currently-published segments.
func (c *Catalog) Segments() []*SegmentInfo {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*SegmentInfo, 0, len(c.segments))
	for _, s := range c.segments {
		out = append(out, s)
	}
	return out
}

// Commit rewrites segments.gen to reflect the catalog's current contents,
// the durable analogue of Lucene's SegmentInfos.commit.
func (c *Catalog) Commit(ctx context.Context) error {
	c.mu.RLock()
	names := make([]string, 0, len(c.segments))
	for n := range c.segments {
		names = append(names, n)
	}
	c.mu.RUnlock()

	tmpName := CommitFileName + ".tmp"
	out, err := c.dir.CreateOutput(ctx, tmpName)
	if err != nil {
		return err
	}

	if err := WriteHeader(out, catalogCodecName, catalogCurrVersion); err != nil {
		out.Close()
		return err
	}
	if err := out.WriteUint32(uint32(len(names))); err != nil {
		out.Close()
		return err
	}
	for _, n := range names {
		if err := out.WriteString(n); err != nil {
			out.Close()
			return err
		}
	}
	if err := WriteFooter(out); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return c.dir.RenameFile(ctx, tmpName, CommitFileName)
}
