package app

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds runtime wiring options for building the app.
type Config struct {
	HomeDir string // config directory, e.g. $HOME/.verbeth
	DBPath  string // sqlite path; empty selects <home>/verbeth.db
	ChainID uint64 // chain id stamped into binding messages
	RPID    string // relying-party id stamped into binding messages
}

// LoadEnv overlays defaults from an optional .env file and the process
// environment onto cfg. Flags set by the caller win.
func LoadEnv(cfg Config) Config {
	_ = godotenv.Load()

	if cfg.ChainID == 0 {
		if raw := os.Getenv("VERBETH_CHAIN_ID"); raw != "" {
			if id, err := strconv.ParseUint(raw, 10, 64); err == nil {
				cfg.ChainID = id
			}
		}
	}
	if cfg.RPID == "" {
		cfg.RPID = os.Getenv("VERBETH_RP_ID")
	}
	if cfg.DBPath == "" {
		cfg.DBPath = os.Getenv("VERBETH_DB_PATH")
	}
	return cfg
}
