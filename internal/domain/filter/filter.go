// Package filter models metadata pre-filters for vector search: a mapping
// from payload field name to one value (equality) or several (OR-match).
package filter

import "fmt"

// MaxConditions is the maximum number of conditions per filter.
const MaxConditions = 16

// Condition matches one payload field against one or more values.
// A single value means equality; multiple values mean any-of.
type Condition struct {
	key    string
	values []string
}

// NewCondition validates and creates a Condition.
func NewCondition(key string, values ...string) (Condition, error) {
	if key == "" {
		return Condition{}, fmt.Errorf("filter key is required")
	}
	if len(values) == 0 {
		return Condition{}, fmt.Errorf("at least one value is required for key %q", key)
	}
	for _, v := range values {
		if v == "" {
			return Condition{}, fmt.Errorf("empty value for key %q", key)
		}
	}
	return Condition{key: key, values: values}, nil
}

// Key returns the field name.
func (c Condition) Key() string { return c.key }

// Values returns the match values.
func (c Condition) Values() []string { return c.values }

// Filter is a conjunction of conditions. The zero value matches everything.
type Filter struct {
	conditions []Condition
}

// New validates and creates a Filter.
func New(conditions ...Condition) (Filter, error) {
	if len(conditions) > MaxConditions {
		return Filter{}, fmt.Errorf("too many filter conditions (max %d)", MaxConditions)
	}
	return Filter{conditions: conditions}, nil
}

// ByTopic builds the single-field topic filter.
func ByTopic(topic string) (Filter, error) {
	c, err := NewCondition("topic", topic)
	if err != nil {
		return Filter{}, err
	}
	return New(c)
}

// Conditions returns the filter conditions.
func (f Filter) Conditions() []Condition { return f.conditions }

// IsEmpty reports whether the filter has no conditions.
func (f Filter) IsEmpty() bool { return len(f.conditions) == 0 }
