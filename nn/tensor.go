// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package nn

import "github.com/born-ml/born-prune/internal/tensor"

// RawTensor is the tensor type held by parameters.
type RawTensor = tensor.RawTensor
