package agents

// LLM prompt templates — data only, no logic.

// profilePrompt turns questionnaire answers into a structured skill profile.
// Args: questionnaire text.
const profilePrompt = `You are a career assistant. Build a structured skill profile
from the candidate's questionnaire answers below.

Respond with valid JSON only (no markdown, no ` + "`" + `json` + "`" + ` block):
{
  "name": "candidate name or empty string",
  "technologies": {"Python": 5, "Go": 2},
  "description": "2-4 sentence plain-text summary of the candidate's experience and goals",
  "core_languages": ["..."],
  "frameworks_and_libraries": ["..."],
  "tools_and_platforms": ["..."],
  "agentic_ai_experience": ["..."],
  "ai_ml_experience": ["..."],
  "soft_skills": ["..."],
  "projects_mentioned": ["..."],
  "job_search_keywords": ["..."]
}

Rules:
- technologies: copy the candidate's self-rated levels (0-7) exactly; do NOT invent ratings
- description: plain text, no markdown
- job_search_keywords: 3-6 short queries a job board would understand
- Do NOT invent skills the answers do not mention

Questionnaire answers:
%s`

// analyzePrompt summarizes the best matches against the candidate profile.
// Args: profile JSON, listings text.
const analyzePrompt = `You are a career assistant. Analyze how well the job listings below
match the candidate, and what the candidate should emphasize when applying.

Write plain text (no markdown): one short paragraph per listing, in the given
order, followed by a closing paragraph with overall advice. Be specific about
which of the candidate's skills each employer will care about.

Candidate profile:
%s

Listings:
%s`

// coverLetterPrompt generates application letters from the analysis.
// Args: letter count, style, letter count, profile JSON, analysis text.
const coverLetterPrompt = `You are a career assistant. Write %d cover letters in a %s style
for the best-matching jobs from the analysis below, one letter per job, best
match first.

Respond with valid JSON only (no markdown, no ` + "`" + `json` + "`" + ` block):
["full text of letter 1", "full text of letter 2"]

Rules:
- exactly %d letters
- each letter: 150-250 words, plain text, ready to send
- ground every claim in the candidate profile; do NOT invent experience
- address the specific company and role from the analysis

Candidate profile:
%s

Analysis:
%s`
