package wire

import (
	"fmt"
	"strings"
)

// SyncRule recomputes Target from the resolved Sources. Rules run in
// declaration order; a rule that reads a later rule's target sees the value
// from before that rule ran.
type SyncRule struct {
	Target  string
	Sources []string
	Compute func(in *Instance, sources []any) (any, error)
}

// Sync derives target from the whole instance.
func Sync(target string, fn func(in *Instance) (any, error)) SyncRule {
	return SyncRule{
		Target: target,
		Compute: func(in *Instance, _ []any) (any, error) {
			return fn(in)
		},
	}
}

func SyncFrom(target, source string, fn func(v any) (any, error)) SyncRule {
	return SyncRule{
		Target:  target,
		Sources: []string{source},
		Compute: func(_ *Instance, vs []any) (any, error) {
			return fn(vs[0])
		},
	}
}

func SyncFromAll(target string, sources []string, fn func(vs []any) (any, error)) SyncRule {
	return SyncRule{
		Target:  target,
		Sources: append([]string(nil), sources...),
		Compute: func(_ *Instance, vs []any) (any, error) {
			return fn(vs)
		},
	}
}

// SyncExpr sets target to the value of e.
func SyncExpr(target string, e Expression) SyncRule {
	return SyncRule{
		Target:  target,
		Sources: exprRefs(e),
		Compute: func(in *Instance, _ []any) (any, error) {
			return e.Evaluate(in)
		},
	}
}

// SyncTag copies the tag of the Variant stored in switchField into target,
// usually the switch discriminator.
func SyncTag(target, switchField string) SyncRule {
	return SyncFrom(target, switchField, func(v any) (any, error) {
		vv, ok := v.(Variant)
		if !ok {
			return nil, fmt.Errorf("wire: %s holds %T, not a Variant", switchField, v)
		}
		return vv.Tag, nil
	})
}

// Sync recomputes derived fields. Nested struct values are synced first,
// depth-first and in full; names filters only this level's rules by target.
func (in *Instance) Sync(names ...string) error {
	for _, fd := range in.schema.fields {
		var err error
		walkInstances(in.values[fd.name], func(child *Instance) {
			if err == nil {
				err = child.Sync()
			}
		})
		if err != nil {
			return err
		}
	}
	var filter map[string]struct{}
	if len(names) > 0 {
		filter = make(map[string]struct{}, len(names))
		for _, n := range names {
			filter[n] = struct{}{}
		}
	}
	for _, rule := range in.schema.syncRules {
		if filter != nil {
			if _, ok := filter[rule.Target]; !ok {
				continue
			}
		}
		srcs := make([]any, len(rule.Sources))
		for i, path := range rule.Sources {
			v, err := Ref(path).Resolve(in)
			if err != nil {
				return fmt.Errorf("wire: sync %s.%s: %w", in.schema.name, rule.Target, err)
			}
			srcs[i] = v
		}
		v, err := rule.Compute(in, srcs)
		if err != nil {
			return fmt.Errorf("wire: sync %s.%s: %w", in.schema.name, rule.Target, err)
		}
		if err := in.Set(rule.Target, v); err != nil {
			return fmt.Errorf("wire: sync %s.%s: %w", in.schema.name, rule.Target, err)
		}
	}
	return nil
}

type visitState uint8

const (
	unvisited visitState = iota
	visiting
	visited
)

// checkSyncCycles rejects rule sets where targets feed each other through
// their declared sources. A rule reading its own target is allowed.
func checkSyncCycles(rules []SyncRule) error {
	edges := make(map[string][]string)
	for _, r := range rules {
		t := normalizePath(r.Target)
		for _, src := range r.Sources {
			s := normalizePath(src)
			if s != t {
				edges[t] = append(edges[t], s)
			}
		}
	}
	state := make(map[string]visitState, len(edges))
	var stack []string
	var visit func(node string) error
	visit = func(node string) error {
		switch state[node] {
		case visiting:
			return fmt.Errorf("cycle: %s -> %s", strings.Join(stack, " -> "), node)
		case visited:
			return nil
		}
		state[node] = visiting
		stack = append(stack, node)
		for _, next := range edges[node] {
			if err := visit(next); err != nil {
				return err
			}
		}
		stack = stack[:len(stack)-1]
		state[node] = visited
		return nil
	}
	for _, node := range sortedKeys(edges) {
		if err := visit(node); err != nil {
			return err
		}
	}
	return nil
}

func normalizePath(path string) string {
	if strings.HasPrefix(path, "/") || strings.HasPrefix(path, "..") {
		return path
	}
	return strings.Join(splitPath(path), ".")
}
