package metrics

import "sync/atomic"

// ImportProgress: счётчики текущего прогона импорта; читаются при опросе статуса задачи.
type ImportProgress struct {
	Received  atomic.Int32
	Processed atomic.Int32
	Imported  atomic.Int32
	Updated   atomic.Int32
	Skipped   atomic.Int32
	Errored   atomic.Int32
}

type ImportProgressSnapshot struct {
	Received  int `json:"received"`
	Processed int `json:"processed"`
	Imported  int `json:"imported"`
	Updated   int `json:"updated"`
	Skipped   int `json:"skipped"`
	Errored   int `json:"errored"`
}

func (p *ImportProgress) Snapshot() ImportProgressSnapshot {
	return ImportProgressSnapshot{
		Received:  int(p.Received.Load()),
		Processed: int(p.Processed.Load()),
		Imported:  int(p.Imported.Load()),
		Updated:   int(p.Updated.Load()),
		Skipped:   int(p.Skipped.Load()),
		Errored:   int(p.Errored.Load()),
	}
}
