// Package preflight validates the environment before a captioning run:
// credentials, prompt, directory access, and free disk space.
package preflight
