// Package transcription defines the speech-to-text provider boundary.
//
// A Provider turns one audio file into word-timestamped text. Quality
// profiles map the user-facing high/balanced/fast choice onto decoding
// window parameters; the table lives here so providers share one policy.
package transcription
