// Copyright (c) 2025, NVIDIA CORPORATION.  All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package serializer encodes hpcr documents as JSON, YAML or a flattened
// table, decodes JSON and YAML documents back, and writes JSON HTTP
// responses.
//
// # Writing
//
//	w := serializer.NewFileWriterOrStdout(serializer.FormatYAML, outPath)
//	defer w.Close()
//	if err := w.Serialize(ctx, doc); err != nil {
//		return err
//	}
//
// An empty path writes to stdout. Unknown formats fall back to JSON with a
// warning.
//
// # Reading
//
//	receipt, err := serializer.FromFile[install.Receipt](path)
//
// The format is chosen from the file extension. Table output is write-only.
//
// # HTTP
//
// RespondJSON buffers the encoded body before writing headers so a failed
// encode never produces a partial response. RespondError maps structured
// error codes to HTTP status codes.
package serializer
