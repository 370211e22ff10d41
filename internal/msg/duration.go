package msg

import (
	"encoding/json"
	"fmt"
	"time"
)

// DefaultTimeout is applied to rawcmd/runscript requests that omit the
// timeout field.
const DefaultTimeout = 15 * time.Second

// Duration is a time.Duration that crosses the wire in human-readable
// form ("15s", "1m30s") so non-typed clients can produce and read it.
type Duration time.Duration

func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

func (d Duration) String() string {
	return time.Duration(d).String()
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := parseHumanDuration(s)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// parseHumanDuration accepts Go duration syntax plus the space-separated
// form some clients emit ("1m 30s").
func parseHumanDuration(s string) (time.Duration, error) {
	stripped := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] != ' ' {
			stripped = append(stripped, s[i])
		}
	}
	return time.ParseDuration(string(stripped))
}
