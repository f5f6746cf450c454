package exitcode

const (
	Success        = 0
	UsageError     = 1
	SourceError    = 2
	TransformError = 3
	WriteError     = 4
)
