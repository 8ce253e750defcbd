package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeText(t *testing.T) {
	assert.Equal(t, "Katz's Deli", NormalizeText("Katz’s Deli"))
	assert.Equal(t, "Joe's - Pizza", NormalizeText("Joe‘s – Pizza"))
	assert.Equal(t, "plain", NormalizeText("plain"))
	assert.Equal(t, "ab", NormalizeText("a\xffb"))
}

func TestCollapseSpaces(t *testing.T) {
	assert.Equal(t, "Joe's Pizza 123 Main St NYC", CollapseSpaces("Joe's Pizza", "123 Main St", "NYC"))
	assert.Equal(t, "joe NYC", CollapseSpaces("joe", "", "NYC"))
	assert.Equal(t, "joe", CollapseSpaces("joe", "", ""))
	assert.Equal(t, "", CollapseSpaces("", "", ""))
}
