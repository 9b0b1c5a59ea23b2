// Package media probes and transcodes audio through ffmpeg/ffprobe and
// fetches remote source files.
//
// Every extraction down-mixes to mono at 16 kHz, the rate speech
// recognition models expect. Chunk extraction applies a start offset and
// duration so the splitter can carve contiguous ranges out of one source
// file.
package media
