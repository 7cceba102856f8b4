package cmd

import (
	"reflect"
	"testing"
)

func TestSplitRoles(t *testing.T) {
	got := splitRoles(" button, text_field ,,link")
	want := []string{"button", "text_field", "link"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestSplitRoles_Empty(t *testing.T) {
	if got := splitRoles(""); got != nil {
		t.Errorf("empty input should yield nil, got %v", got)
	}
}
