package backend

import (
	"testing"
	"time"

	"github.com/chrispangg/deepagentsdk-sub002/internal/runstate"
	"github.com/stretchr/testify/assert"
)

func TestValidatePathRequiresLeadingSlash(t *testing.T) {
	assert.NoError(t, ValidatePath("/ok"))
	assert.Error(t, ValidatePath("relative"))
	assert.Error(t, ValidatePath(""))
}

func TestNormalizePathCollapsesDotSegments(t *testing.T) {
	assert.Equal(t, "/a/b", NormalizePath("/a/./b"))
	assert.Equal(t, "/b", NormalizePath("/a/../b"))
	assert.Equal(t, "/", NormalizePath("/"))
}

func TestChildrenOfSkipsGrandchildren(t *testing.T) {
	files := map[string]runstate.FileData{
		"/dir/one.txt":       {Content: []string{"x"}, ModifiedAt: time.Now()},
		"/dir/sub/two.txt":   {Content: []string{"y"}},
		"/other/three.txt":   {Content: []string{"z"}},
	}
	children := ChildrenOf(files, "/dir")
	assert.Len(t, children, 2)
}
