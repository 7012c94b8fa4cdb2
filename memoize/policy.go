package memoize

import (
	"reflect"
	"time"

	"github.com/cockroachdb/errors"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/puzpuzpuz/xsync/v3"

	"github.com/goliatone/go-cacheable/cache"
)

// ErrDuplicateOperation is returned when an operation is registered twice
// with different declarations.
var ErrDuplicateOperation = errors.New("memoize: operation already registered")

// Policy is the cache policy attached to an operation.
type Policy struct {
	// Namespace prefixes every key the operation produces.
	Namespace string
	// TTL is a hint for backends that expire entries. Zero uses the
	// backend's configured TTL.
	TTL time.Duration
}

// Validate checks that the namespace is set and the TTL is non-negative.
func (p Policy) Validate() error {
	if err := validation.Validate(p.Namespace, validation.Required.Error("cannot be empty")); err != nil {
		return &cache.ConfigError{Field: "Namespace", Message: err.Error()}
	}
	if err := validation.Validate(p.TTL, validation.Min(time.Duration(0)).Error("must be non-negative")); err != nil {
		return &cache.ConfigError{Field: "TTL", Message: err.Error()}
	}
	return nil
}

// Param describes one declared parameter of an operation.
type Param struct {
	Name string `yaml:"name"`
	// Key marks the parameter as part of the cache key.
	Key bool `yaml:"key"`
}

// KeyParam declares a parameter that contributes to the cache key.
func KeyParam(name string) Param {
	return Param{Name: name, Key: true}
}

// ParamOf declares a parameter that does not contribute to the cache key
// unless no parameter is tagged.
func ParamOf(name string) Param {
	return Param{Name: name}
}

// Operation declares how one operation is memoized. A nil Policy registers
// the operation as a passthrough. Params may be omitted, in which case every
// argument is part of the key.
type Operation struct {
	Name   string
	Policy *Policy
	Params []Param
}

// Validate checks the operation name and its policy.
func (o Operation) Validate() error {
	if err := validation.Validate(o.Name, validation.Required.Error("cannot be empty")); err != nil {
		return &cache.ConfigError{Field: "Name", Message: err.Error()}
	}
	if o.Policy != nil {
		if err := o.Policy.Validate(); err != nil {
			return errors.Wrapf(err, "operation %s", o.Name)
		}
	}
	for i, p := range o.Params {
		if err := validation.Validate(p.Name, validation.Required.Error("cannot be empty")); err != nil {
			return errors.Wrapf(&cache.ConfigError{Field: "Params.Name", Message: err.Error()}, "operation %s param %d", o.Name, i)
		}
	}
	return nil
}

// PolicyProvider is implemented by services that declare their own cache
// policies. Operation names are method names; NewProxy qualifies them with
// the receiver type.
type PolicyProvider interface {
	CachePolicies() []Operation
}

type positionsKey struct {
	operation string
	arity     int
}

// Registry maps operation names to their declarations and memoizes the key
// positions derived from them. Registration is expected at wiring time;
// lookups are safe for concurrent use.
type Registry struct {
	operations *xsync.MapOf[string, Operation]
	positions  *xsync.MapOf[positionsKey, []int]
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		operations: xsync.NewMapOf[string, Operation](),
		positions:  xsync.NewMapOf[positionsKey, []int](),
	}
}

// Register adds op. Registering an identical declaration again is a no-op;
// a conflicting one fails with ErrDuplicateOperation.
func (r *Registry) Register(op Operation) error {
	if err := op.Validate(); err != nil {
		return err
	}
	op = cloneOperation(op)

	existing, loaded := r.operations.LoadOrStore(op.Name, op)
	if loaded && !reflect.DeepEqual(existing, op) {
		return errors.Wrapf(ErrDuplicateOperation, "operation %s", op.Name)
	}
	return nil
}

// RegisterAll registers every operation, stopping at the first failure.
func (r *Registry) RegisterAll(ops ...Operation) error {
	for _, op := range ops {
		if err := r.Register(op); err != nil {
			return err
		}
	}
	return nil
}

// PolicyOf returns the policy of op, if it has one.
func (r *Registry) PolicyOf(op string) (Policy, bool) {
	decl, ok := r.operations.Load(op)
	if !ok || decl.Policy == nil {
		return Policy{}, false
	}
	return *decl.Policy, true
}

// Lookup returns a copy of the declaration registered under op.
func (r *Registry) Lookup(op string) (Operation, bool) {
	decl, ok := r.operations.Load(op)
	if !ok {
		return Operation{}, false
	}
	return cloneOperation(decl), true
}

// KeyPositionsOf returns the ascending argument positions that form the key
// of op when called with arity arguments. The result is computed once per
// operation and arity and must not be modified.
func (r *Registry) KeyPositionsOf(op string, arity int) []int {
	decl, ok := r.operations.Load(op)
	if !ok {
		// unregistered operations are not memoized
		return allPositions(arity)
	}
	positions, _ := r.positions.LoadOrCompute(positionsKey{operation: op, arity: arity}, func() []int {
		return derivePositions(decl.Params, arity)
	})
	return positions
}

// derivePositions returns the tagged parameter indices, or every argument
// index when nothing is tagged.
func derivePositions(params []Param, arity int) []int {
	if len(params) == 0 {
		return allPositions(arity)
	}

	var tagged []int
	for i, p := range params {
		if p.Key {
			tagged = append(tagged, i)
		}
	}
	if len(tagged) > 0 {
		return tagged
	}
	return allPositions(arity)
}

func allPositions(n int) []int {
	positions := make([]int, n)
	for i := range positions {
		positions[i] = i
	}
	return positions
}

func cloneOperation(op Operation) Operation {
	if op.Policy != nil {
		policy := *op.Policy
		op.Policy = &policy
	}
	if op.Params != nil {
		op.Params = append([]Param(nil), op.Params...)
	}
	return op
}
