package config

// ComponentParam groups the tunables the indexing and search core reads
// from a BaseTable, mirroring the teacher's component_param.go grouping of
// per-subsystem settings off one shared table.
type ComponentParam struct {
	base *BaseTable

	Flush  FlushParam
	Search SearchParam
	Dir    DirectoryParam
	Fields StoredFieldsParam
}

// FlushParam configures flushcontrol admission and back-pressure (§4.4).
type FlushParam struct {
	// RAMBufferSizeBytes is the per-DWPT RAM budget before flush-pending.
	RAMBufferSizeBytes int64
	// MaxBufferedDocs is the per-DWPT document-count budget before flush-pending.
	MaxBufferedDocs int64
	// StallRAMBytes is the aggregate pending-flush RAM above which
	// producers must help drain the flush queue and then block.
	StallRAMBytes int64
	// MaxThreadStates bounds the ticket-queue backlog before a ForcedPurge
	// event is emitted (§4.5).
	MaxThreadStates int
}

// SearchParam holds the query-evaluation tunables (§4.7). DefaultTopK is
// loaded but not read by internal/searchapi, whose handler uses k=10 when a
// request gives none.
type SearchParam struct {
	DefaultTopK int
}

// DirectoryParam selects and configures the storage.Directory backend (§2.1).
type DirectoryParam struct {
	Backend string // "fs" or "minio"
	FSRoot  string

	MinioEndpoint  string
	MinioBucket    string
	MinioAccessKey string
	MinioSecretKey string
	MinioUseSSL    bool
}

// StoredFieldsParam selects and configures the per-document stored-fields
// backend (§4.2), independent of the segment Directory backend above: a
// segment's postings/catalog files can live on one Directory while its
// retrievable field values live in a separate RocksDB instance.
type StoredFieldsParam struct {
	Backend   string // "fs" or "rocks"
	RocksPath string
}

// NewComponentParam builds a ComponentParam from base, applying defaults for
// anything absent from the loaded table.
func NewComponentParam(base *BaseTable) *ComponentParam {
	p := &ComponentParam{base: base}
	p.Flush.RAMBufferSizeBytes = base.ParseInt64WithDefault("flush.ramBufferSizeBytes", 16<<20)
	p.Flush.MaxBufferedDocs = base.ParseInt64WithDefault("flush.maxBufferedDocs", 100000)
	p.Flush.StallRAMBytes = base.ParseInt64WithDefault("flush.stallRAMBytes", 128<<20)
	p.Flush.MaxThreadStates = base.ParseIntWithDefault("flush.maxThreadStates", 8)

	p.Search.DefaultTopK = base.ParseIntWithDefault("search.defaultTopK", 10)

	p.Dir.Backend = base.LoadWithDefault("directory.backend", "fs")
	p.Dir.FSRoot = base.LoadWithDefault("directory.fsRoot", "./data")
	p.Dir.MinioEndpoint = base.LoadWithDefault("directory.minio.endpoint", "localhost:9000")
	p.Dir.MinioBucket = base.LoadWithDefault("directory.minio.bucket", "ivx-segments")
	p.Dir.MinioAccessKey = base.LoadWithDefault("directory.minio.accessKey", "minioadmin")
	p.Dir.MinioSecretKey = base.LoadWithDefault("directory.minio.secretKey", "minioadmin")
	p.Dir.MinioUseSSL = base.ParseBoolWithDefault("directory.minio.useSSL", false)

	p.Fields.Backend = base.LoadWithDefault("storedFields.backend", "fs")
	p.Fields.RocksPath = base.LoadWithDefault("storedFields.rocksPath", "./data/rocks")

	return p
}
