// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package export renders the transcript for use outside rkai.
//
// The core operation is BuildDigest, a pure plain-text rendering of the
// transcript. The rest of the package hands that digest (or a Markdown
// rendering) to the outside world: a mail composer, the clipboard or a file.
//
// # Key Functions
//
//   - BuildDigest: "[yyyy-MM-dd HH:mm] ROLE: content" lines
//   - MailtoURI / OpenURI: Mail composer hand-off
//   - CopyToClipboard: System clipboard hand-off
//   - ExportToFile / WriteDigest: File export with atomic writes
//   - SaveImage: Decode a generated image turn to a file
//
// # Usage
//
//	digest := export.BuildDigest(turns)
//	err := export.OpenURI(export.MailtoURI(export.DigestSubject, digest))
package export
