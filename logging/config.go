package logging

import "time"

type Config struct {
	EnabledSinks     []string       `json:"enabledSinks"`
	BufferSize       int            `json:"bufferSize"`
	MinimumSeverity  Severity       `json:"minimumSeverity"`
	Fields           map[string]any `json:"fields,omitempty"`
	JSON             JSONConfig     `json:"json"`
	DropWarnInterval time.Duration  `json:"-"`
}

type JSONConfig struct {
	FilePath      string        `json:"filePath"`
	FlushInterval time.Duration `json:"-"`
}

func DefaultConfig() Config {
	return Config{
		EnabledSinks:     []string{"console"},
		BufferSize:       512,
		MinimumSeverity:  SeverityInfo,
		DropWarnInterval: 5 * time.Second,
		JSON: JSONConfig{
			FlushInterval: 2 * time.Second,
		},
	}
}

func (c Config) HasSink(name string) bool {
	for _, s := range c.EnabledSinks {
		if s == name {
			return true
		}
	}
	return false
}

func (c Config) CloneFields() map[string]any {
	if len(c.Fields) == 0 {
		return nil
	}
	cloned := make(map[string]any, len(c.Fields))
	for k, v := range c.Fields {
		cloned[k] = v
	}
	return cloned
}
