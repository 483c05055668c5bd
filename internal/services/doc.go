// Package services holds the shared error taxonomy, context annotations, and
// the external service clients used by the pipeline stages.
package services
