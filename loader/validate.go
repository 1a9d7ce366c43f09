package loader

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/nathoo/tickwork/engine/rules"
	"github.com/nathoo/tickwork/types"
)

// ValidationError collects all validation errors and warnings.
type ValidationError struct {
	Errors   []string
	Warnings []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed with %d error(s):\n  %s",
		len(e.Errors), strings.Join(e.Errors, "\n  "))
}

// Known effect types.
var validEffectTypes = map[string]bool{
	"say":         true,
	"set_flag":    true,
	"inc_counter": true,
	"set_counter": true,
	"emit_event":  true,
	"mark_done":   true,
	"pause":       true,
	"cancel":      true,
	"stop":        true,
	"start":       true,
	"halt":        true,
}

// Known condition types.
var validConditionTypes = map[string]bool{
	"flag_set":   true,
	"flag_not":   true,
	"flag_is":    true,
	"counter_gt": true,
	"counter_lt": true,
	"tick_gt":    true,
	"has_event":  true,
	"expr":       true,
	"not":        true,
}

var validModes = map[string]bool{
	"":            true,
	"serial":      true,
	"parallel":    true,
	"conditional": true,
}

// validate checks compiled task definitions. Warnings are logged; only
// errors fail.
func validate(defs []types.TaskDef, logger *slog.Logger) error {
	ve := &ValidationError{}
	names := map[string]bool{}

	for i, def := range defs {
		label := def.Name
		if label == "" {
			label = fmt.Sprintf("#%d", i+1)
		}

		if !validModes[def.Mode] {
			ve.Errors = append(ve.Errors, fmt.Sprintf(
				"task %s has unknown mode %q", label, def.Mode))
		}
		if def.Name != "" {
			if names[def.Name] {
				ve.Errors = append(ve.Errors, fmt.Sprintf(
					"duplicate task name %q", def.Name))
			}
			names[def.Name] = true
		}
		if def.Delay < 0 {
			ve.Errors = append(ve.Errors, fmt.Sprintf(
				"task %s has negative delay %d", label, def.Delay))
		}

		conditional := def.Mode == "conditional"
		if conditional && len(def.Conditions) == 0 {
			ve.Errors = append(ve.Errors, fmt.Sprintf(
				"conditional task %s has no conditions", label))
		}
		if !conditional {
			if len(def.Conditions) > 0 || len(def.TerminateWhen) > 0 {
				ve.Warnings = append(ve.Warnings, fmt.Sprintf(
					"task %s is %s; its conditions are ignored", label, modeName(def.Mode)))
			}
			if len(def.OnTermination) > 0 {
				ve.Warnings = append(ve.Warnings, fmt.Sprintf(
					"task %s is %s; on_termination never runs", label, modeName(def.Mode)))
			}
		}
		if len(def.Then) == 0 {
			ve.Warnings = append(ve.Warnings, fmt.Sprintf(
				"task %s has no effects", label))
		}

		validateConditions(label, def.Conditions, ve)
		validateConditions(label, def.TerminateWhen, ve)
		validateEffects(label, def.Then, ve)
		validateEffects(label, def.OnTermination, ve)
	}

	for _, w := range ve.Warnings {
		logger.Warn(w)
	}

	if len(ve.Errors) > 0 {
		return ve
	}
	return nil
}

func validateConditions(task string, conditions []types.Condition, ve *ValidationError) {
	for _, cond := range conditions {
		if !validConditionTypes[cond.Type] {
			ve.Errors = append(ve.Errors, fmt.Sprintf(
				"task %s: unknown condition type %q", task, cond.Type))
			continue
		}

		switch cond.Type {
		case "flag_set", "flag_not", "flag_is":
			requireString(task, "condition "+cond.Type, cond.Params, "flag", ve)
		case "counter_gt", "counter_lt":
			requireString(task, "condition "+cond.Type, cond.Params, "counter", ve)
		case "has_event":
			requireString(task, "condition has_event", cond.Params, "event", ve)
		case "expr":
			src, _ := cond.Params["expr"].(string)
			if src == "" {
				requireString(task, "condition expr", cond.Params, "expr", ve)
			} else if _, err := rules.CompileExpr(src); err != nil {
				ve.Errors = append(ve.Errors, fmt.Sprintf(
					"task %s: expr %q: %v", task, src, err))
			}
		case "not":
			if cond.Inner == nil {
				ve.Errors = append(ve.Errors, fmt.Sprintf(
					"task %s: not condition has no inner condition", task))
				continue
			}
			validateConditions(task, []types.Condition{*cond.Inner}, ve)
		}
	}
}

func validateEffects(task string, effects []types.Effect, ve *ValidationError) {
	for _, eff := range effects {
		if !validEffectTypes[eff.Type] {
			ve.Errors = append(ve.Errors, fmt.Sprintf(
				"task %s: unknown effect type %q", task, eff.Type))
			continue
		}

		switch eff.Type {
		case "set_flag":
			requireString(task, "effect set_flag", eff.Params, "flag", ve)
		case "inc_counter", "set_counter":
			requireString(task, "effect "+eff.Type, eff.Params, "counter", ve)
		case "emit_event":
			requireString(task, "effect emit_event", eff.Params, "event", ve)
		case "cancel":
			requireString(task, "effect cancel", eff.Params, "action", ve)
		}
	}
}

func requireString(task, what string, params map[string]any, key string, ve *ValidationError) {
	if s, ok := params[key].(string); !ok || s == "" {
		ve.Errors = append(ve.Errors, fmt.Sprintf(
			"task %s: %s requires %q", task, what, key))
	}
}

func modeName(mode string) string {
	if mode == "" {
		return "serial"
	}
	return mode
}
