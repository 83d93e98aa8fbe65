package mcpserver

// DocumentFormatContract describes the canonical Markdown document format
// that LLM consumers should follow when authoring publishable content.
const DocumentFormatContract = `# Ansuz Document Format Contract

Every Markdown document published through Ansuz SHOULD follow this structure.

## Structure

` + "```" + `markdown
---
title: Human-readable title        # OPTIONAL – falls back to the first # heading
description: One-line summary       # OPTIONAL
date: 2025-01-15                    # OPTIONAL – defaults to today on publish
tags: [tag-one, tag-two]            # OPTIONAL – inline or block list
cover: images/cover.png             # OPTIONAL – uploaded as a blob on publish
draft: true                         # OPTIONAL – drafts are never published
slug: custom-slug                   # OPTIONAL – overrides the path-derived slug
---

Body text in standard Markdown.

Link to other documents with relative Markdown links: [text](other-post.md).
Published targets are rewritten to their permanent record identity.
` + "```" + `

## Rules

1. **Frontmatter is optional.** A document without a frontmatter block is
   published with the first ` + "`" + `# heading` + "`" + ` as its title and today's date.
2. **Three delimiter families are accepted:** ` + "`" + `---` + "`" + ` and ` + "`" + `;;;` + "`" + ` with
   ` + "`" + `key: value` + "`" + ` assignments, or ` + "`" + `+++` + "`" + ` with ` + "`" + `key = value` + "`" + ` assignments.
   The opening marker must be the very first line of the file.
3. **Never write the ` + "`" + `atUri` + "`" + ` field by hand.** The publisher writes the
   record identity back into the frontmatter after the first publish; editing
   or copying it causes updates to land on the wrong record.
4. **Slugs** derive from the file path: extension stripped, trailing
   ` + "`" + `/index` + "`" + ` stripped, and a leading ` + "`" + `YYYY-MM-DD-` + "`" + ` date prefix removed
   from the final segment.
5. **Drafts** (` + "`" + `draft: true` + "`" + `) are skipped entirely; remove the flag to publish.
6. **Cover paths** resolve relative to the document's directory first, then
   relative to the content root. Remote URLs are left untouched.
7. **File paths** end with ` + "`" + `.md` + "`" + ` or ` + "`" + `.mdx` + "`" + ` and use forward slashes.
8. **Encoding** is UTF-8 with a trailing newline.

## Links

- ` + "`" + `[text](other-post.md)` + "`" + ` – rewritten to the target's record identity when
  the target is published, reduced to plain ` + "`" + `text` + "`" + ` when it is not.
- ` + "`" + `![alt](image.png)` + "`" + ` and ` + "`" + `@[embed](video.md)` + "`" + ` – embeds, never rewritten.
- External (` + "`" + `https://...` + "`" + `), anchor (` + "`" + `#section` + "`" + `), and mention (` + "`" + `@handle` + "`" + `)
  targets are left untouched.

## Example

` + "```" + `markdown
---
title: Shipping the new pipeline
date: 2025-01-20
tags: [infra, release]
cover: covers/pipeline.png
---

# Shipping the new pipeline

We finally replaced the old cron job, see [the design notes](design-notes.md).
` + "```" + `
`
