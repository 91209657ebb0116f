// Package file provides file-based implementations of driven port interfaces.
// These adapters persist data to the local filesystem under ~/.feeder.
//
// Adapters:
//   - ConfigStore: TOML-based configuration storage
//   - PromptStore: User-editable LLM prompt templates
package file
