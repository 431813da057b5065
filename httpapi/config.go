package httpapi

// Header names used by the raw line endpoint.
const (
	// HeaderNextLine carries the next absolute line number to request.
	HeaderNextLine = "X-Console-Next-Line"
	// DefaultCompleteHeader reports whether the job output is fully retrieved.
	DefaultCompleteHeader = "X-Console-Complete"
	// DefaultStartParam names the query parameter holding the first line number.
	DefaultStartParam = "startLineNumber"
)

// Config defines HTTP API and UI settings.
type Config struct {
	Addr           string
	BaseURL        string
	BasePath       string
	ReplayEvents   int
	CompleteHeader string
	StartParam     string
}

func (c Config) completeHeader() string {
	if c.CompleteHeader == "" {
		return DefaultCompleteHeader
	}
	return c.CompleteHeader
}

func (c Config) startParam() string {
	if c.StartParam == "" {
		return DefaultStartParam
	}
	return c.StartParam
}
