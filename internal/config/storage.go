package config

// StorageConfig configures the durable record store.
type StorageConfig struct {
	Backend string `yaml:"backend"` // file, sqlite, redis, memory

	// Directory for the file backend, database file for sqlite.
	Path string `yaml:"path"`

	// sqlite (modernc, pure Go) or sqlite3 (mattn, cgo).
	SQLDriver string `yaml:"sql_driver"`

	Redis RedisConfig `yaml:"redis"`
}

// RedisConfig configures the redis backend.
type RedisConfig struct {
	Addr      string `yaml:"addr"`
	Password  string `yaml:"password,omitempty"`
	DB        int    `yaml:"db"`
	KeyPrefix string `yaml:"key_prefix"`
}
