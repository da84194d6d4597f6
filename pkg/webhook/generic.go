package webhook

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/jmespath/go-jmespath"

	"github.com/Ramsey-B/sage/pkg/models"
)

// GenericConfig holds the JMESPath expressions that select message fields out
// of an unknown provider's payload. FromPath and BodyPath are required; the
// rest are optional.
type GenericConfig struct {
	FromPath      string
	ToPath        string
	BodyPath      string
	GroupPath     string
	MessageIDPath string
}

// DefaultGenericConfig matches the flat payload shape of the system sage
// replaced, so integrations posting that shape keep working unconfigured.
func DefaultGenericConfig() GenericConfig {
	return GenericConfig{
		FromPath:      "customer_phone",
		ToPath:        "business_number",
		BodyPath:      "message",
		GroupPath:     "is_group",
		MessageIDPath: "message_id",
	}
}

// GenericParser maps arbitrary payload shapes through configured JMESPath
// expressions. It is the lowest-priority parser.
type GenericParser struct {
	from      *jmespath.JMESPath
	to        *jmespath.JMESPath
	body      *jmespath.JMESPath
	group     *jmespath.JMESPath
	messageID *jmespath.JMESPath
}

// NewGenericParser compiles the configured expressions once up front
func NewGenericParser(cfg GenericConfig) (*GenericParser, error) {
	if cfg.FromPath == "" || cfg.BodyPath == "" {
		return nil, fmt.Errorf("generic parser requires from and body expressions")
	}

	parser := &GenericParser{}

	var err error
	if parser.from, err = jmespath.Compile(cfg.FromPath); err != nil {
		return nil, fmt.Errorf("invalid from expression %q: %w", cfg.FromPath, err)
	}
	if parser.body, err = jmespath.Compile(cfg.BodyPath); err != nil {
		return nil, fmt.Errorf("invalid body expression %q: %w", cfg.BodyPath, err)
	}
	if cfg.ToPath != "" {
		if parser.to, err = jmespath.Compile(cfg.ToPath); err != nil {
			return nil, fmt.Errorf("invalid to expression %q: %w", cfg.ToPath, err)
		}
	}
	if cfg.GroupPath != "" {
		if parser.group, err = jmespath.Compile(cfg.GroupPath); err != nil {
			return nil, fmt.Errorf("invalid group expression %q: %w", cfg.GroupPath, err)
		}
	}
	if cfg.MessageIDPath != "" {
		if parser.messageID, err = jmespath.Compile(cfg.MessageIDPath); err != nil {
			return nil, fmt.Errorf("invalid message id expression %q: %w", cfg.MessageIDPath, err)
		}
	}

	return parser, nil
}

func (p *GenericParser) Name() string {
	return "generic"
}

// Parse matches any JSON payload whose from expression yields a value. The
// body may legitimately be empty.
func (p *GenericParser) Parse(payload []byte) (*models.InboundMessage, bool) {
	var data any
	if err := json.Unmarshal(payload, &data); err != nil {
		return nil, false
	}

	from := searchString(p.from, data)
	if from == "" {
		return nil, false
	}

	return &models.InboundMessage{
		FromNumber: from,
		ToNumber:   searchString(p.to, data),
		Body:       searchString(p.body, data),
		IsGroup:    searchBool(p.group, data),
		MessageID:  searchString(p.messageID, data),
	}, true
}

func searchString(expr *jmespath.JMESPath, data any) string {
	if expr == nil {
		return ""
	}
	result, err := expr.Search(data)
	if err != nil || result == nil {
		return ""
	}
	switch v := result.(type) {
	case string:
		return v
	case float64:
		// Some providers send phone numbers as JSON numbers.
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return ""
	}
}

func searchBool(expr *jmespath.JMESPath, data any) bool {
	if expr == nil {
		return false
	}
	result, err := expr.Search(data)
	if err != nil || result == nil {
		return false
	}
	b, ok := result.(bool)
	return ok && b
}
