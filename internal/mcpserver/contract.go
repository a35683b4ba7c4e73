package mcpserver

// NoteFormatContract describes the canonical markdown note format that
// tool callers should follow when creating or updating notes.
const NoteFormatContract = `# Othala Note Format Contract

Every markdown note stored in this vault follows this structure.

## Structure

` + "```" + `markdown
---
title: Human-readable title        # used in search ranking and link resolution
tags:                               # optional YAML list
  - tag-one
  - tag-two
created: 2025-01-15                 # optional ISO-8601 date
---

Body text in standard Markdown.

Use [[wikilinks]] to reference other notes by title or filename stem.
Use [[target|alias]] for display text that differs from the target.
` + "```" + `

## Rules

1. Frontmatter is a flat mapping: scalar values or lists of scalars only.
   Nested objects are rejected as INVALID_FRONTMATTER.
2. A missing frontmatter block is fine; the title then falls back to the
   first H1 heading, then the filename stem.
3. Wikilink targets resolve case-insensitively against note titles and
   filename stems. A target that resolves to nothing is kept as an
   unresolved graph node, not an error.
4. File paths are vault-relative, use forward slashes, and end with .md.
5. Inline #tags in the body count as tags alongside the frontmatter list.

## Synced notes

Notes mirrored from external records (clients, projects, meetings,
insights) carry "type" and "id" frontmatter keys. The id is how re-syncs
find the note again; do not remove it. Frontmatter on these notes is
overwritten by the next sync; the body is yours to edit.

## Templates

Templates live under Templates/ and use {{variable}} placeholders in both
frontmatter values and body. A placeholder with no matching variable is
left verbatim for later manual completion.
`
