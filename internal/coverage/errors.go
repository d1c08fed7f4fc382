// SPDX-License-Identifier: Apache-2.0

package coverage

import "errors"

// ErrEmptyDataset signals that the pipeline received nothing to aggregate,
// as opposed to a dataset showing zero coverage.
var ErrEmptyDataset = errors.New("coverage: empty or malformed dataset")
