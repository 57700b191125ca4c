// Package connectors provides document source implementations and the
// factory that creates them from source references. Each subpackage
// implements driven.Connector for one source type.
package connectors
