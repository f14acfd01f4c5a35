package digest

import (
	"fmt"
	"strconv"
	"strings"

	"firestige.xyz/spamprint/internal/core"
)

// Window selects Lines qualifying lines starting Percent percent of the way
// into a message.
type Window struct {
	Percent int
	Lines   int
}

// Plan is an ordered list of sampling windows.
type Plan []Window

// DefaultPlan samples three lines at 20% and three at 60%.
var DefaultPlan = Plan{{Percent: 20, Lines: 3}, {Percent: 60, Lines: 3}}

func (p Plan) Validate() error {
	if len(p) == 0 {
		return fmt.Errorf("%w: no windows", core.ErrInvalidPlan)
	}
	for i, w := range p {
		if w.Percent < 0 || w.Percent >= 100 {
			return fmt.Errorf("%w: window %d percent %d not in [0,100)", core.ErrInvalidPlan, i, w.Percent)
		}
		if w.Lines <= 0 {
			return fmt.Errorf("%w: window %d line count %d must be positive", core.ErrInvalidPlan, i, w.Lines)
		}
	}
	return nil
}

// String renders the wire form, e.g. "20,3,60,3".
func (p Plan) String() string {
	parts := make([]string, 0, 2*len(p))
	for _, w := range p {
		parts = append(parts, strconv.Itoa(w.Percent), strconv.Itoa(w.Lines))
	}
	return strings.Join(parts, ",")
}

// ParsePlan parses the wire form produced by Plan.String.
func ParsePlan(s string) (Plan, error) {
	fields := strings.Split(strings.TrimSpace(s), ",")
	if len(fields)%2 != 0 {
		return nil, fmt.Errorf("%w: odd number of values in %q", core.ErrInvalidPlan, s)
	}
	plan := make(Plan, 0, len(fields)/2)
	for i := 0; i < len(fields); i += 2 {
		pct, err := strconv.Atoi(strings.TrimSpace(fields[i]))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", core.ErrInvalidPlan, err)
		}
		n, err := strconv.Atoi(strings.TrimSpace(fields[i+1]))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", core.ErrInvalidPlan, err)
		}
		plan = append(plan, Window{Percent: pct, Lines: n})
	}
	if err := plan.Validate(); err != nil {
		return nil, err
	}
	return plan, nil
}
