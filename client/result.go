package client

import "time"

// Result summarises one logical operation.
type Result struct {
	OpID             string        `json:"op_id" yaml:"op_id"`
	Direction        string        `json:"direction" yaml:"direction"`
	RemotePath       string        `json:"remote_path" yaml:"remote_path"`
	LocalPath        string        `json:"local_path,omitempty" yaml:"local_path,omitempty"`
	BytesTotal       int64         `json:"bytes_total" yaml:"bytes_total"`
	BytesTransferred int64         `json:"bytes_transferred" yaml:"bytes_transferred"`
	Chunks           int           `json:"chunks" yaml:"chunks"`
	ResumedFrom      int64         `json:"resumed_from" yaml:"resumed_from"`
	AlreadyComplete  bool          `json:"already_complete" yaml:"already_complete"`
	Checksum         uint64        `json:"checksum" yaml:"checksum" render:"hex"`
	Mtime            int64         `json:"mtime" yaml:"mtime"`
	Duration         time.Duration `json:"duration" yaml:"duration"`
}

// Progress is reported after every chunk.
type Progress struct {
	Direction string
	Path      string
	Done      int64
	Total     int64
}

// Percent returns Done/Total in [0,1]. An empty transfer is complete.
func (p Progress) Percent() float64 {
	if p.Total <= 0 {
		return 1
	}
	return float64(p.Done) / float64(p.Total)
}

// ProgressFunc receives progress updates on the calling goroutine.
type ProgressFunc func(Progress)
