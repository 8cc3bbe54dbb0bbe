package ledger

import (
	"encoding/json"
	"fmt"
	"strings"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/valter-silva-au/projitive/pkg/models"
)

const schemaURL = "https://projitive.dev/schemas/tasks.json"

// tasksSchema is the strict form of the ledger record. Parse never applies
// it; Validate lets a caller ask for fail-fast checking explicitly.
const tasksSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "array",
  "items": {
    "type": "object",
    "required": ["id", "title", "status"],
    "properties": {
      "id": {"type": "string", "pattern": "^TASK-[0-9]{4}$"},
      "title": {"type": "string", "minLength": 1, "pattern": "\\S"},
      "status": {"enum": ["TODO", "IN_PROGRESS", "BLOCKED", "DONE"]},
      "owner": {"type": "string"},
      "summary": {"type": "string"},
      "updatedAt": {"type": "string"},
      "links": {"type": ["array", "null"], "items": {"type": "string"}},
      "hooks": {"type": ["array", "null"], "items": {"type": "string"}},
      "roadmapRefs": {
        "type": ["array", "null"],
        "items": {"type": "string", "pattern": "^ROADMAP-[0-9]{4}$"}
      },
      "subState": {
        "type": "object",
        "properties": {
          "phase": {"enum": ["discovery", "design", "implementation", "testing"]},
          "confidence": {"type": "number", "minimum": 0, "maximum": 1},
          "estimatedCompletion": {"type": "string"}
        }
      },
      "blocker": {
        "type": "object",
        "required": ["type", "description"],
        "properties": {
          "type": {"enum": ["internal_dependency", "external_dependency", "resource", "approval"]},
          "description": {"type": "string", "minLength": 1},
          "blockingEntity": {"type": "string"},
          "unblockCondition": {"type": "string"},
          "escalationPath": {"type": "string"}
        }
      }
    }
  }
}`

var compiledSchema = jsonschema.MustCompileString(schemaURL, tasksSchema)

// ValidationIssue is one schema violation found by Validate.
type ValidationIssue struct {
	Path    string `json:"path" yaml:"path"`
	Message string `json:"message" yaml:"message"`
}

func (i ValidationIssue) String() string {
	if i.Path == "" {
		return i.Message
	}
	return fmt.Sprintf("%s: %s", i.Path, i.Message)
}

// Validate checks tasks against the strict ledger schema and returns every
// violation. An empty result means the records are valid as written.
func Validate(tasks []models.Task) []ValidationIssue {
	if tasks == nil {
		tasks = []models.Task{}
	}
	data, err := json.Marshal(tasks)
	if err != nil {
		return []ValidationIssue{{Message: fmt.Sprintf("encoding tasks: %s", err)}}
	}
	var doc interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return []ValidationIssue{{Message: fmt.Sprintf("decoding tasks: %s", err)}}
	}

	err = compiledSchema.Validate(doc)
	if err == nil {
		return nil
	}
	ve, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return []ValidationIssue{{Message: err.Error()}}
	}
	var issues []ValidationIssue
	collectIssues(&issues, ve)
	return issues
}

func collectIssues(issues *[]ValidationIssue, ve *jsonschema.ValidationError) {
	if len(ve.Causes) == 0 {
		*issues = append(*issues, ValidationIssue{
			Path:    pointerToPath(ve.InstanceLocation),
			Message: ve.Message,
		})
		return
	}
	for _, cause := range ve.Causes {
		collectIssues(issues, cause)
	}
}

// pointerToPath turns "/0/blocker/type" into "[0].blocker.type".
func pointerToPath(ptr string) string {
	if ptr == "" || ptr == "/" {
		return ""
	}
	var b strings.Builder
	for _, part := range strings.Split(strings.TrimPrefix(ptr, "/"), "/") {
		if part != "" && strings.Trim(part, "0123456789") == "" {
			b.WriteString("[" + part + "]")
			continue
		}
		if b.Len() > 0 {
			b.WriteString(".")
		}
		b.WriteString(part)
	}
	return b.String()
}
