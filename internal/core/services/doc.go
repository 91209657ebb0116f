// Package services implements the driving port interfaces.
// Services contain the ingestion logic and orchestrate
// calls to driven ports (adapters).
//
// Services are pure Go; every collaborator is injected through its port.
package services
