package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
)

var naturalTime = func() *when.Parser {
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	return w
}()

// parseMoment accepts RFC 3339, a plain date, or an English expression such as "3 days ago".
func parseMoment(value string, now time.Time) (*time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}

	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, value); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}

	result, err := naturalTime.Parse(value, now)
	if err != nil {
		return nil, fmt.Errorf("parse %q: %w", value, err)
	}
	if result == nil {
		return nil, fmt.Errorf("cannot understand %q", value)
	}
	t := result.Time.UTC()
	return &t, nil
}
