package blobprovider

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestObjectName_JoinsWithForwardSlash(t *testing.T) {
	assert.Equal(t, "datasets/daily/out.parquet", objectName("datasets/daily", "out.parquet"))
	assert.Equal(t, "out.parquet", objectName("", "out.parquet"))
}
