package sealevel

type Logger interface {
	Log(s string)
}

// LogRecorder keeps program log lines in order of emission.
type LogRecorder struct {
	Logs []string
}

func (r *LogRecorder) Log(s string) {
	r.Logs = append(r.Logs, s)
}
