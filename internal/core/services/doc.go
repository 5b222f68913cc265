// Package services implements the driving port interfaces: the sync
// planner, embed worker, reconciler, and the orchestrator that chains
// them into runs, plus the continuous-mode scheduler and the query
// surface. Services contain the core pipeline logic and talk to the
// outside world only through driven ports.
package services
