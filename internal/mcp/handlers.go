package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/johnswift/mem0-mcp/internal/logger"
	"github.com/johnswift/mem0-mcp/internal/mem0"
)

const (
	// MessageMemoryAdded is the add-memory response text, success or not.
	MessageMemoryAdded = "Memory added successfully"
	// MessageNoMemories is the search-memories response for an empty or failed search.
	MessageNoMemories = "No memories found"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report fields by their JSON names so messages match the tool schema.
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return field.Name
		}
		return name
	})
	return v
}

// ValidateAndUnmarshal decodes tool arguments into T and checks required fields.
// Numbers are kept as json.Number so pass-through values round-trip unchanged.
func ValidateAndUnmarshal[T any](params json.RawMessage) (T, error) {
	var result T
	if argumentsAbsent(params) {
		return result, NewError(InvalidParams, ErrNoArguments.Error())
	}

	dec := json.NewDecoder(bytes.NewReader(params))
	dec.UseNumber()
	if err := dec.Decode(&result); err != nil {
		return result, NewError(InvalidParams, fmt.Sprintf("invalid arguments: %s", err.Error()))
	}

	if err := validate.Struct(result); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			names := make([]string, len(fieldErrs))
			for i, fe := range fieldErrs {
				names[i] = fe.Field()
			}
			return result, NewError(InvalidParams, "missing required argument: "+strings.Join(names, ", "))
		}
		return result, NewError(InvalidParams, err.Error())
	}

	return result, nil
}

// MemoryService is the remote memory backend the handlers delegate to.
type MemoryService interface {
	Add(ctx context.Context, messages []mem0.Message, opts mem0.AddOptions) error
	Search(ctx context.Context, query string, opts mem0.SearchOptions) ([]mem0.SearchResult, error)
}

// MemoryHandlers creates handlers for memory tools that use the provided service.
type MemoryHandlers struct {
	service MemoryService
	logger  logger.Logger
}

// NewMemoryHandlers creates a new MemoryHandlers with the given service.
func NewMemoryHandlers(service MemoryService, log logger.Logger) *MemoryHandlers {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &MemoryHandlers{
		service: service,
		logger:  log,
	}
}

// Register registers all memory tool handlers with the server.
func (h *MemoryHandlers) Register(server *Server) {
	for _, tool := range MemoryTools() {
		var handler Handler
		switch tool.Name {
		case AddMemoryToolName:
			handler = h.HandleAdd
		case SearchMemoriesToolName:
			handler = h.HandleSearch
		default:
			continue
		}
		server.RegisterTool(tool, handler)
	}
}

// HandleAdd handles the add-memory tool call.
// A failed remote add is logged and still reported as success.
func (h *MemoryHandlers) HandleAdd(ctx context.Context, params json.RawMessage) (string, error) {
	args, err := ValidateAndUnmarshal[AddMemoryArgs](params)
	if err != nil {
		return "", err
	}

	messages := []mem0.Message{{Role: mem0.RoleUser, Content: *args.Content}}
	opts := mem0.AddOptions{UserID: *args.UserID, Metadata: args.Metadata}

	if err := h.service.Add(ctx, messages, opts); err != nil {
		h.logger.Error("Error adding memory", "user_id", opts.UserID, "error", err)
	}

	return MessageMemoryAdded, nil
}

// HandleSearch handles the search-memories tool call.
// A failed remote search is logged and answered like an empty one.
func (h *MemoryHandlers) HandleSearch(ctx context.Context, params json.RawMessage) (string, error) {
	args, err := ValidateAndUnmarshal[SearchMemoriesArgs](params)
	if err != nil {
		return "", err
	}

	results, err := h.service.Search(ctx, *args.Query, mem0.SearchOptions{UserID: *args.UserID})
	if err != nil {
		h.logger.Error("Error searching memories", "user_id", *args.UserID, "error", err)
		results = nil
	}

	return FormatSearchResults(results), nil
}

// FormatSearchResults renders results as "Memory/Relevance/---" blocks joined by newlines.
func FormatSearchResults(results []mem0.SearchResult) string {
	if len(results) == 0 {
		return MessageNoMemories
	}
	blocks := make([]string, len(results))
	for i, r := range results {
		blocks[i] = fmt.Sprintf("Memory: %s\nRelevance: %s\n---", r.Memory, formatScore(r.Score))
	}
	return strings.Join(blocks, "\n")
}

// formatScore prints the shortest decimal form of score, switching to exponent
// notation only for very large or very small magnitudes.
func formatScore(score float64) string {
	abs := math.Abs(score)
	if abs != 0 && (abs < 1e-6 || abs >= 1e21) {
		return strconv.FormatFloat(score, 'g', -1, 64)
	}
	return strconv.FormatFloat(score, 'f', -1, 64)
}
