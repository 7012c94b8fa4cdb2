package memoize

import (
	"io"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/xhit/go-str2duration/v2"
	"gopkg.in/yaml.v3"
)

type policyFile struct {
	Operations map[string]policyEntry `yaml:"operations"`
}

type policyEntry struct {
	Namespace string   `yaml:"namespace"`
	TTL       ttlValue `yaml:"ttl"`
	Params    []Param  `yaml:"params"`
	Disabled  bool     `yaml:"disabled"`
}

// ttlValue accepts plain numbers as seconds and duration strings such as
// "20s" or "1d12h".
type ttlValue time.Duration

func (v *ttlValue) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return errors.Newf("line %d: ttl must be a scalar", node.Line)
	}

	switch node.Tag {
	case "!!int":
		seconds, err := strconv.ParseInt(node.Value, 0, 64)
		if err != nil {
			return errors.Wrapf(err, "line %d: ttl", node.Line)
		}
		*v = ttlValue(time.Duration(seconds) * time.Second)
	case "!!float":
		seconds, err := strconv.ParseFloat(node.Value, 64)
		if err != nil {
			return errors.Wrapf(err, "line %d: ttl", node.Line)
		}
		*v = ttlValue(time.Duration(seconds * float64(time.Second)))
	case "!!null":
		*v = 0
	default:
		d, err := str2duration.ParseDuration(node.Value)
		if err != nil {
			return errors.Wrapf(err, "line %d: ttl", node.Line)
		}
		*v = ttlValue(d)
	}
	return nil
}

// LoadPolicies parses operation declarations from YAML:
//
//	operations:
//	  UppercaseService.Upper:
//	    namespace: cache1
//	    ttl: 20
//	  UppercaseService.UpperWithPrefix:
//	    namespace: cache2
//	    ttl: 20s
//	    params: [{name: source, key: true}, {name: prefix}]
//
// An empty namespace defaults to the snake_case operation name. Disabled
// operations are returned without a policy. The result is sorted by name.
func LoadPolicies(r io.Reader) ([]Operation, error) {
	var file policyFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "memoize: decode policies")
	}

	names := make([]string, 0, len(file.Operations))
	for name := range file.Operations {
		names = append(names, name)
	}
	sort.Strings(names)

	ops := make([]Operation, 0, len(names))
	for _, name := range names {
		entry := file.Operations[name]
		op := Operation{Name: name, Params: entry.Params}
		if !entry.Disabled {
			namespace := entry.Namespace
			if namespace == "" {
				namespace = toSnake(name)
			}
			op.Policy = &Policy{Namespace: namespace, TTL: time.Duration(entry.TTL)}
		}
		if err := op.Validate(); err != nil {
			return nil, err
		}
		ops = append(ops, op)
	}
	return ops, nil
}

// LoadPolicyFile reads a YAML policy file from path.
func LoadPolicyFile(path string) ([]Operation, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "memoize: open policies")
	}
	defer f.Close()
	return LoadPolicies(f)
}
