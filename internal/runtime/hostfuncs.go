package runtime

import (
	"context"

	"github.com/risor-io/risor/object"
	"go.uber.org/zap"

	"github.com/jward/surveyor/internal/classify"
)

// makeNormalizeTypeFn creates the "normalize_type" host function.
//
// normalize_type(text) → {"kind": ..., "description": ..., "enum": [...]}
func makeNormalizeTypeFn() *object.Builtin {
	return object.NewBuiltin("normalize_type", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("normalize_type", 1, len(args))
		}
		text, ok := args[0].(*object.String)
		if !ok {
			return object.Errorf("normalize_type: text must be a string, got %s", args[0].Type())
		}
		td := classify.Normalize(text.Value())
		enum := make([]object.Object, 0, len(td.EnumValues))
		for _, v := range td.EnumValues {
			enum = append(enum, object.NewString(v))
		}
		return object.NewMap(map[string]object.Object{
			"kind":        object.NewString(td.Kind),
			"description": object.NewString(td.Description),
			"enum":        object.NewList(enum),
		})
	})
}

// makeDefaultCategoryFn creates the "default_category" host function.
//
// default_category(name, path) → string
func makeDefaultCategoryFn() *object.Builtin {
	return object.NewBuiltin("default_category", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 2 {
			return object.NewArgsError("default_category", 2, len(args))
		}
		name, ok := args[0].(*object.String)
		if !ok {
			return object.Errorf("default_category: name must be a string, got %s", args[0].Type())
		}
		path, ok := args[1].(*object.String)
		if !ok {
			return object.Errorf("default_category: path must be a string, got %s", args[1].Type())
		}
		return object.NewString(classify.Categorize(name.Value(), path.Value()))
	})
}

// makeDescribeNameFn creates the "describe_name" host function.
//
// describe_name(name, param_count, has_id=false) → string
func makeDescribeNameFn() *object.Builtin {
	return object.NewBuiltin("describe_name", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) < 2 || len(args) > 3 {
			return object.Errorf("describe_name: expected 2 or 3 arguments, got %d", len(args))
		}
		name, ok := args[0].(*object.String)
		if !ok {
			return object.Errorf("describe_name: name must be a string, got %s", args[0].Type())
		}
		count, ok := args[1].(*object.Int)
		if !ok {
			return object.Errorf("describe_name: param_count must be an int, got %s", args[1].Type())
		}
		hasID := false
		if len(args) == 3 {
			b, ok := args[2].(*object.Bool)
			if !ok {
				return object.Errorf("describe_name: has_id must be a bool, got %s", args[2].Type())
			}
			hasID = b.Value()
		}
		return object.NewString(classify.Describe(name.Value(), int(count.Value()), hasID))
	})
}

// logObject provides log.Info/Warn/Error methods for Risor scripts.
type logObject struct {
	logger *zap.Logger
}

func (l *logObject) Info(msg string) {
	l.logger.Info(msg)
}

func (l *logObject) Warn(msg string) {
	l.logger.Warn(msg)
}

func (l *logObject) Error(msg string) {
	l.logger.Error(msg)
}
