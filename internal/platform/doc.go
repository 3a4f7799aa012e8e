// Package platform provides the low-level host operations needed for
// orchestrating a reboot: privilege probes, filesystem flushing, kexec state,
// hardware clock writeback and the final exec handover.
// Since nosreboot is Linux-specific, `unix` stdlib functions are used
// preferentially over their `os` equivalent for consistency.
package platform
