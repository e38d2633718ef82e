package logger

// Logger is the structured logging contract used across the processing
// pipeline. Components identify themselves by name so batch runs over many
// devices remain attributable.
type Logger interface {
	Debug(component, message string, fields map[string]interface{})
	Info(component, message string, fields map[string]interface{})
	Warning(component, message string, fields map[string]interface{})
	Error(component string, err error, fields map[string]interface{})
}

// Nop discards all log events. Used in tests.
type Nop struct{}

func NewNop() *Nop { return &Nop{} }

func (n *Nop) Debug(component, message string, fields map[string]interface{})   {}
func (n *Nop) Info(component, message string, fields map[string]interface{})    {}
func (n *Nop) Warning(component, message string, fields map[string]interface{}) {}
func (n *Nop) Error(component string, err error, fields map[string]interface{}) {}
