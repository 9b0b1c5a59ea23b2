// Package llm talks to an OpenAI-compatible chat completion endpoint
// for transcript rewriting: readability enhancement and translation.
// Both operations are decoupled from timing; re-mapping rewritten text
// onto caption segments is the caption package's job.
package llm
