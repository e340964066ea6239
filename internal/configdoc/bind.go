// Package configdoc implements the declarative document-to-record
// binder: the configuration engine that turns a parsed docnode.Node
// tree into a typed Go value, used for recipes, selections files, and
// layered settings alike. Reflection plays the role the
// spec's "attributes" do in its source language; struct tags spelled
// `cfg:"name,flag,..."` carry renames, optionality, pattern fields,
// alias-this flattening, and additive-merge marking.
package configdoc

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/dub-go/dub/internal/docnode"
)

// StrictMode controls how an unmatched mapping key is handled.
type StrictMode int

const (
	StrictError StrictMode = iota
	StrictWarn
	StrictIgnore
)

// Logf receives strict-mode warnings; callers may override it to route
// through their own logger (see internal/log).
var Logf = func(format string, args ...any) {}

// NodeUnmarshaler is the "from_yaml-style hook" step of the binder
// contract: a type that knows how to construct itself from a node.
type NodeUnmarshaler interface {
	UnmarshalNode(n *docnode.Node) error
}

// TextUnmarshaler mirrors encoding.TextUnmarshaler; it is checked
// before falling back to structural recursion, playing the role of the
// spec's "from_string" and "single-string-constructible" steps.
type TextUnmarshaler interface {
	UnmarshalText(text []byte) error
}

// Validator is called after a record successfully binds, if present
// and the record is enabled.
type Validator interface {
	Validate() error
}

// Converter is a type-keyed escape hatch for document shapes that
// can't be expressed by tags alone. Registered globally via
// RegisterConverter, checked before NodeUnmarshaler.
type Converter func(n *docnode.Node) (any, error)

var converters = map[reflect.Type]Converter{}

// RegisterConverter installs a converter for exact type T. Call once,
// typically from an init() in the package that owns T.
func RegisterConverter[T any](fn func(n *docnode.Node) (T, error)) {
	var zero T
	t := reflect.TypeOf(zero)
	converters[t] = func(n *docnode.Node) (any, error) { return fn(n) }
}

// Parse binds root to a new *T using strict as the unknown-key policy.
func Parse[T any](root *docnode.Node, strict StrictMode) (*T, error) {
	var out T
	v := reflect.ValueOf(&out).Elem()
	if err := bindStruct(v, root, strict); err != nil {
		return nil, err
	}
	if enabled(v) {
		if validator, ok := reflect.ValueOf(&out).Interface().(Validator); ok {
			if err := validator.Validate(); err != nil {
				return nil, err
			}
		}
	}
	return &out, nil
}

// enabled evaluates a record's "enabled"/"disabled" short-circuit
// field, if present.
func enabled(v reflect.Value) bool {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		switch strings.ToLower(f.Name) {
		case "enabled":
			if v.Field(i).Kind() == reflect.Bool {
				return v.Field(i).Bool()
			}
		case "disabled":
			if v.Field(i).Kind() == reflect.Bool {
				return !v.Field(i).Bool()
			}
		}
	}
	return true
}

// bindStruct fills v (a struct) from node. It is the public entry
// point for binding a record against its own mapping, so it always
// starts a fresh external-name scope and a fresh consumed-key set, and
// it owns the unknown-key check: the check must run once per document
// mapping, after every field — aliased sub-records included — has had
// its chance to consume keys. Use bindStructNames directly only when
// flattening an alias-this field into an already-open scope (see the
// ft.alias case below).
func bindStruct(v reflect.Value, node *docnode.Node, strict StrictMode) error {
	if node == nil {
		node = &docnode.Node{Kind: docnode.Mapping}
	}
	consumed := make(map[string]bool, len(node.Pairs))
	if err := bindStructNames(v, node, strict, map[string]string{}, consumed); err != nil {
		return err
	}
	if strict == StrictError || strict == StrictWarn {
		for _, p := range node.Pairs {
			if consumed[p.Key] {
				continue
			}
			if strict == StrictError {
				return &UnknownKeyError{Pos: p.KeyPos, Key: p.Key}
			}
			Logf("warn: %s: unknown key %q", p.KeyPos, p.Key)
		}
	}
	return nil
}

// bindStructNames is bindStruct's implementation, parameterized over
// the external-name scope seenNames and the consumed-key set so an
// alias-this field can share its parent's scope instead of opening a
// fresh one: flattened fields must be rejected if they clash with the
// parent's own field names, and keys either side consumes must be
// visible to the one unknown-key check bindStruct runs at the end,
// which only holds if both are tracked in the same maps.
func bindStructNames(v reflect.Value, node *docnode.Node, strict StrictMode, seenNames map[string]string, consumed map[string]bool) error {
	if node.Kind != docnode.Mapping {
		return &TypeMismatchError{Pos: node.Pos, Field: v.Type().Name(), Expected: "mapping", Got: node.Kind}
	}

	t := v.Type()
	patternFields := []int{}

	// The enabled/disabled short-circuit field must itself be
	// bound from the document before it can gate the rest of the
	// struct; reflect-inspecting the still-zero-valued field would
	// always see false.
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		name := strings.ToLower(f.Name)
		if (name == "enabled" || name == "disabled") && v.Field(i).Kind() == reflect.Bool {
			if child := node.Get(name); child != nil {
				if err := bindScalar(v.Field(i), child, name); err != nil {
					return err
				}
				consumed[name] = true
			}
		}
	}
	if !enabled(v) {
		return nil
	}

	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !v.Field(i).CanSet() {
			continue
		}
		ft := parseFieldTag(f.Tag.Get("cfg"), f.Name)
		if ft.skip {
			continue
		}

		if ft.alias {
			// Reject the attribute on any record whose flattened
			// fields would clash with the parent's fields, and
			// reject the attribute outright when the aliased
			// member itself carries a rename or a registered
			// converter, since neither has a sensible meaning once
			// the sub-record's fields are spliced into the parent's
			// own mapping.
			if ft.renamed {
				return &AliasAttributeError{Field: f.Name, Reason: "aliased member must not carry a rename"}
			}
			if _, ok := converters[f.Type]; ok {
				return &AliasAttributeError{Field: f.Name, Reason: "aliased member must not carry a converter"}
			}
			if err := bindStructNames(v.Field(i), node, strict, seenNames, consumed); err != nil {
				return err
			}
			continue
		}

		if _, ok := seenNames[ft.name]; ok {
			return &DuplicateKeyError{Field: f.Name, Name: ft.name}
		}
		seenNames[ft.name] = f.Name

		if ft.pattern {
			patternFields = append(patternFields, i)
			continue
		}
		if isDurationType(f.Type) {
			if err := bindDurationField(v.Field(i), node, ft.name, fieldOptional(f, v.Field(i), ft), consumed); err != nil {
				return err
			}
			continue
		}

		child := node.Get(ft.name)
		consumed[ft.name] = true
		if child == nil {
			if fieldOptional(f, v.Field(i), ft) {
				continue
			}
			return &MissingRequiredKeyError{Pos: node.Pos, Field: ft.name}
		}
		if err := bindValue(v.Field(i), child, ft.name, strict); err != nil {
			return err
		}
	}

	// Pattern fields run after the direct pass and before the
	// strict-mode unknown-key check, so matched keys are never flagged.
	for _, i := range patternFields {
		f := t.Field(i)
		ft := parseFieldTag(f.Tag.Get("cfg"), f.Name)
		if err := bindPatternField(v.Field(i), node, ft.name, consumed); err != nil {
			return err
		}
	}
	return nil
}

// fieldOptional implements the five-way optionality rule: explicit
// tag, non-default initializer, boolean, SetInfo wrapper, or an
// aggregate whose every reachable field is itself optional.
func fieldOptional(f reflect.StructField, fv reflect.Value, ft fieldTag) bool {
	if ft.optional {
		return true
	}
	if fv.Kind() == reflect.Bool {
		return true
	}
	if !reflect.DeepEqual(fv.Interface(), reflect.Zero(fv.Type()).Interface()) {
		return true // non-default initial value
	}
	if isSetInfoType(f.Type) {
		return true
	}
	if fv.Kind() == reflect.Struct && allFieldsOptional(f.Type) {
		return true
	}
	if fv.Kind() == reflect.Ptr || fv.Kind() == reflect.Slice || fv.Kind() == reflect.Map {
		return true
	}
	return false
}

func allFieldsOptional(t reflect.Type) bool {
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		ft := parseFieldTag(f.Tag.Get("cfg"), f.Name)
		if ft.skip {
			continue
		}
		if ft.optional {
			continue
		}
		switch f.Type.Kind() {
		case reflect.Bool, reflect.Ptr, reflect.Slice, reflect.Map:
			continue
		case reflect.Struct:
			if isSetInfoType(f.Type) || allFieldsOptional(f.Type) {
				continue
			}
		}
		return false
	}
	return true
}

func isSetInfoType(t reflect.Type) bool {
	return t.Kind() == reflect.Struct && strings.HasPrefix(t.Name(), "SetInfo[")
}

func isDurationType(t reflect.Type) bool {
	return t.Kind() == reflect.Int64 && t.Name() == "Duration"
}

// bindValue dispatches a single field value through the step chain:
// converter, NodeUnmarshaler, TextUnmarshaler, structural recursion.
func bindValue(fv reflect.Value, node *docnode.Node, name string, strict StrictMode) error {
	if isSetInfoType(fv.Type()) {
		return bindSetInfo(fv, node, name, strict)
	}

	if conv, ok := converters[fv.Type()]; ok {
		result, err := conv(node)
		if err != nil {
			return &ConstructionFailureError{Pos: node.Pos, Field: name, Err: err}
		}
		fv.Set(reflect.ValueOf(result))
		return nil
	}

	if fv.CanAddr() {
		if u, ok := fv.Addr().Interface().(NodeUnmarshaler); ok {
			if err := u.UnmarshalNode(node); err != nil {
				return &ConstructionFailureError{Pos: node.Pos, Field: name, Err: err}
			}
			return nil
		}
		if u, ok := fv.Addr().Interface().(TextUnmarshaler); ok && node.Kind == docnode.Scalar {
			if err := u.UnmarshalText([]byte(node.ScalarValue)); err != nil {
				return &ConstructionFailureError{Pos: node.Pos, Field: name, Err: err}
			}
			return nil
		}
	}

	return bindStructural(fv, node, name, strict)
}

func bindSetInfo(fv reflect.Value, node *docnode.Node, name string, strict StrictMode) error {
	valueField := fv.FieldByName("Value")
	isSetField := fv.FieldByName("IsSet")
	if err := bindValue(valueField, node, name, strict); err != nil {
		return err
	}
	isSetField.SetBool(true)
	return nil
}

// bindStructural is the last step of the chain: mapping->record,
// sequence->ordered sequence, scalar->primitive (including enum by name).
func bindStructural(fv reflect.Value, node *docnode.Node, name string, strict StrictMode) error {
	switch fv.Kind() {
	case reflect.Struct:
		return bindStruct(fv, node, strict)
	case reflect.Ptr:
		if fv.IsNil() {
			fv.Set(reflect.New(fv.Type().Elem()))
		}
		return bindValue(fv.Elem(), node, name, strict)
	case reflect.Slice:
		if node.Kind != docnode.Sequence {
			return &TypeMismatchError{Pos: node.Pos, Field: name, Expected: "sequence", Got: node.Kind}
		}
		out := reflect.MakeSlice(fv.Type(), len(node.Items), len(node.Items))
		for i, item := range node.Items {
			if err := bindValue(out.Index(i), item, fmt.Sprintf("%s[%d]", name, i), strict); err != nil {
				return err
			}
		}
		fv.Set(out)
		return nil
	case reflect.Map:
		if node.Kind != docnode.Mapping {
			return &TypeMismatchError{Pos: node.Pos, Field: name, Expected: "mapping", Got: node.Kind}
		}
		out := reflect.MakeMapWithSize(fv.Type(), len(node.Pairs))
		for _, p := range node.Pairs {
			elem := reflect.New(fv.Type().Elem()).Elem()
			if err := bindValue(elem, p.Value, name+"."+p.Key, strict); err != nil {
				return err
			}
			out.SetMapIndex(reflect.ValueOf(p.Key), elem)
		}
		fv.Set(out)
		return nil
	default:
		return bindScalar(fv, node, name)
	}
}

// bindPatternField implements the associative pattern-field rule: any
// document key equal to base, or spelled "base-<suffix>",
// contributes to the field's map under "" or "<suffix>" respectively.
func bindPatternField(fv reflect.Value, node *docnode.Node, base string, consumed map[string]bool) error {
	if fv.Kind() != reflect.Map {
		return fmt.Errorf("pattern field %q must be a map type", base)
	}
	prefix := base + "-"
	for _, p := range node.Pairs {
		var suffix string
		switch {
		case p.Key == base:
			suffix = ""
		case strings.HasPrefix(p.Key, prefix):
			suffix = p.Key[len(prefix):]
		default:
			continue
		}
		elem := reflect.New(fv.Type().Elem()).Elem()
		if err := bindValue(elem, p.Value, base+"["+suffix+"]", StrictIgnore); err != nil {
			return err
		}
		if fv.IsNil() {
			fv.Set(reflect.MakeMap(fv.Type())) // a field with no matching key stays nil
		}
		fv.SetMapIndex(reflect.ValueOf(suffix), elem)
		consumed[p.Key] = true
	}
	return nil
}

func bindScalar(fv reflect.Value, node *docnode.Node, name string) error {
	if node.Kind != docnode.Scalar {
		return &TypeMismatchError{Pos: node.Pos, Field: name, Expected: "scalar", Got: node.Kind}
	}
	raw := node.ScalarValue
	switch fv.Kind() {
	case reflect.String:
		fv.SetString(raw)
	case reflect.Bool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return &ConstructionFailureError{Pos: node.Pos, Field: name, Err: err}
		}
		fv.SetBool(b)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return &ConstructionFailureError{Pos: node.Pos, Field: name, Err: err}
		}
		fv.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return &ConstructionFailureError{Pos: node.Pos, Field: name, Err: err}
		}
		fv.SetUint(n)
	case reflect.Float32, reflect.Float64:
		n, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return &ConstructionFailureError{Pos: node.Pos, Field: name, Err: err}
		}
		fv.SetFloat(n)
	default:
		return &TypeMismatchError{Pos: node.Pos, Field: name, Expected: "scalar-compatible type", Got: node.Kind}
	}
	return nil
}

// bindDurationField implements the dual-form duration rule: a Duration
// field named "timeout" accepts either a "timeout" mapping-of-units, or
// a "timeout_<unit>" scalar for exactly one unit. Both forms present is
// a DurationAmbiguityError; neither form present on a required field is
// a MissingRequiredKeyError.
func bindDurationField(fv reflect.Value, node *docnode.Node, base string, optional bool, consumed map[string]bool) error {
	mappingChild := node.Get(base)
	consumed[base] = true

	var scalarKey string
	var scalarChild *docnode.Node
	var scale time.Duration
	for unit, unitScale := range durationUnits {
		key := base + "_" + unit
		if c := node.Get(key); c != nil {
			if scalarChild != nil {
				return &DurationAmbiguityError{Pos: c.Pos, Field: base, Msg: fmt.Sprintf("both %q and %q given", scalarKey, key)}
			}
			scalarKey, scalarChild, scale = key, c, unitScale
		}
		consumed[key] = true
	}

	switch {
	case mappingChild != nil && scalarChild != nil:
		return &DurationAmbiguityError{Pos: mappingChild.Pos, Field: base, Msg: fmt.Sprintf("both mapping form %q and scalar form %q given", base, scalarKey)}
	case mappingChild != nil:
		if mappingChild.Kind != docnode.Mapping {
			return &TypeMismatchError{Pos: mappingChild.Pos, Field: base, Expected: "mapping", Got: mappingChild.Kind}
		}
		units := map[string]string{}
		for _, p := range mappingChild.Pairs {
			if p.Value.Kind != docnode.Scalar {
				return &TypeMismatchError{Pos: p.Value.Pos, Field: base + "." + p.Key, Expected: "scalar", Got: p.Value.Kind}
			}
			units[p.Key] = p.Value.ScalarValue
		}
		d, err := sumDurationMapping(units)
		if err != nil {
			return &ConstructionFailureError{Pos: mappingChild.Pos, Field: base, Err: err}
		}
		fv.SetInt(int64(d))
		return nil
	case scalarChild != nil:
		if scalarChild.Kind != docnode.Scalar {
			return &TypeMismatchError{Pos: scalarChild.Pos, Field: scalarKey, Expected: "scalar", Got: scalarChild.Kind}
		}
		d, err := scalarDuration(scale, scalarChild.ScalarValue)
		if err != nil {
			return &ConstructionFailureError{Pos: scalarChild.Pos, Field: scalarKey, Err: err}
		}
		fv.SetInt(int64(d))
		return nil
	default:
		if optional {
			return nil
		}
		return &MissingRequiredKeyError{Pos: node.Pos, Field: base}
	}
}
