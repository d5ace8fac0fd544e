// Copyright 2020-2025 Buf Technologies, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package mathx_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bufbuild/polytope/internal/mathx"
)

func TestClamp(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 3, mathx.Clamp(3, 0, 5))
	assert.Equal(t, 0, mathx.Clamp(-1, 0, 5))
	assert.Equal(t, 5, mathx.Clamp(9, 0, 5))
	assert.Equal(t, uint8(4), mathx.Clamp[uint8](200, 1, 4))
	assert.Equal(t, 7, mathx.Clamp(3, 7, 5))

	assert.Equal(t, 4, mathx.Abs(-4))
	assert.Equal(t, int64(4), mathx.Abs[int64](4))
}
