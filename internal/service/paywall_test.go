package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDecide(t *testing.T) {
	cases := []struct {
		name string
		paid bool
		used int
		want Decision
	}{
		{"first message", false, 1, DecisionAllow},
		{"just before warn", false, 29, DecisionAllow},
		{"warn threshold", false, 30, DecisionWarn},
		{"after warn", false, 31, DecisionAllow},
		{"just before block", false, 59, DecisionAllow},
		{"block threshold", false, 60, DecisionBlock},
		{"long after block", false, 500, DecisionBlock},
		{"paid at warn", true, 30, DecisionAllow},
		{"paid past block", true, 900, DecisionAllow},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Decide(tc.paid, tc.used, DefaultLimits))
		})
	}
}

func TestDecideWarnFiresOnce(t *testing.T) {
	warns := 0
	for used := 1; used <= 200; used++ {
		if Decide(false, used, DefaultLimits) == DecisionWarn {
			warns++
		}
	}
	assert.Equal(t, 1, warns)
}
