// Package file keeps configuration and prompt templates on local disk.
// ConfigStore reads TOML or YAML depending on the file extension;
// PromptStore serves editable prompts from ~/.docrag/prompts.
package file
