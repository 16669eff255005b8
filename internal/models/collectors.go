package models

// CollectorConfig selects which collectors run and what they look at.
type CollectorConfig struct {
	CollectConnection bool
	CollectXDSL       bool
	CollectLANHosts   bool
	CollectAgent      bool
	Interfaces        []string
}
