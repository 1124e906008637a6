package apperr

// ConfigError means the requested run cannot start. It is raised before any
// outbound API call.
type ConfigError struct {
	Message string
	Err     error
}

func (e *ConfigError) Error() string {
	return format("configuration error", e.Message, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

func NewConfig(msg string) *ConfigError {
	return &ConfigError{Message: msg}
}

func NewConfigWrap(msg string, err error) *ConfigError {
	return &ConfigError{Message: msg, Err: err}
}

// UpstreamError is a failed call to the video search API. It aborts the
// current topic only.
type UpstreamError struct {
	Message string
	Err     error
}

func (e *UpstreamError) Error() string {
	return format("upstream error", e.Message, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

func NewUpstream(msg string, err error) *UpstreamError {
	return &UpstreamError{Message: msg, Err: err}
}

// ScoringError is a failed or unparseable language-model response for a
// single video.
type ScoringError struct {
	VideoID string
	Message string
	Err     error
}

func (e *ScoringError) Error() string {
	msg := e.Message
	if e.VideoID != "" {
		msg = e.Message + " (video " + e.VideoID + ")"
	}
	return format("scoring error", msg, e.Err)
}

func (e *ScoringError) Unwrap() error {
	return e.Err
}

func NewScoring(videoID, msg string, err error) *ScoringError {
	return &ScoringError{VideoID: videoID, Message: msg, Err: err}
}

// IOError is a failure to write report output.
type IOError struct {
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return format("io error", e.Path, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

func NewIO(path string, err error) *IOError {
	return &IOError{Path: path, Err: err}
}

func format(kind, msg string, err error) string {
	s := kind
	if msg != "" {
		s += ": " + msg
	}
	if err != nil {
		s += ": " + err.Error()
	}
	return s
}
