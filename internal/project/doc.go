// Package project defines the story document model: paragraphs, choices,
// characters, and the flat asset list. Content slots reference assets by id
// and resolve display data through a Resolver; legacy documents that embed
// whole asset values in their slots are still decoded.
package project
