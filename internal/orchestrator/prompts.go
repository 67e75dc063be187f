package orchestrator

// comprehensivePrompt is the round-0 "extract everything" instruction. Later
// rounds replace it with a gap-targeted prompt so follow-ups stay cheap.
const comprehensivePrompt = `Analyze this repository and produce a complete structured report.

Respond with a single JSON object using exactly these top-level keys:

- "issues": array of discovered problems, each with "title", "severity"
  (critical/high/medium/low), "category", "location" ({"file","line"}),
  "codeSnippet" and "recommendation" where available
- "testCoverage": object mapping metric names to percentages, e.g. {"overall": 72}
- "dependencies": {"vulnerable": [...], "outdated": [...], "deprecated": [...]},
  each entry an object with at least "name"
- "architecture": object describing layering, major components, and coupling concerns
- "teamMetrics": object with contributor and process metrics
- "documentation": object assessing README, API docs, and onboarding material
- "breakingChanges": array of strings describing breaking changes on this branch
- "recommendations": array of prioritized improvement suggestions

Cover security, performance, code quality, dependency health, architecture,
documentation, and breaking changes. Omit keys you have no data for rather
than inventing content. Respond with JSON only, no surrounding prose.`
