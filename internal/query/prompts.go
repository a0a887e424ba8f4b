package query

// exampleQuestions gives the parser model context for the kinds of questions
// it will see. They are labeled as examples in the template so the model does
// not treat them as the query.
var exampleQuestions = []string{
	"Show me tasks from the last 6 months",
	"Summarize my completed tasks for the past week",
	"show me time invested in all my tasks from 2023-01-01 to 2023-02-01",
	"Show me all tasks that are still 'In Progress'",
	"What is the total time spent on completed tasks in the last week?",
	"What is the longest task I worked on in the past year?",
	"What is the total duration of tasks completed in the last 3 days?",
	"List tasks with duration greater than 5 hours from the last 2 weeks",
}

const filterPromptTemplate = `These are some examples of user prompts: {{.examples}}.
Prompts from the examples are not part of the user query; they are just for context.

There are main keyword actions the user can ask for:
1. 'total': compute the total duration of tasks matching the filters
2. 'longest': find the longest task matching the filters
3. 'list': list all tasks matching the filters
4. user asks for a specific status, like 'In Progress' or 'Completed'
5. user provides a date range, like 'from 2023-01-01 to 2023-02-01'
   or relative dates like 'last 6 months'
6. user asks about "how much time was spent" or "duration of tasks": set action to 'total'
7. if user asks for tasks that took more than X hours, set action to 'list' and duration to X

Rules for interpreting relative dates:
- "last week" eg (today = 2025-03-11): start_date = 2025-03-03, end_date = 2025-03-10
- "last month" eg (current month = September 2025): start_date = 2025-08-01, end_date = 2025-08-31
- "last 6 months" eg (today = 2025-03-11): start_date = 2024-09-11, end_date = 2025-03-11

Important: the response must always be a single JSON object with the following keys:
{
    "action": string,
    "status": string|null,
    "duration": number|null,
    "start_date": string|null,
    "end_date": string|null
}

Dates are ISO format (YYYY-MM-DD). You may also include an optional "explanation" key, but the JSON must be parseable.

Today's date is {{.today}}.

User Question: {{.question}}
`

const answerPromptTemplate = `You are a productivity assistant answering a question about the user's archived work sessions.

ROUTING HINT: {{.hint}}

The relevant data has already been retrieved:
{{.context}}

Output style:
- Answer as if you are speaking directly to the user (second person: "you").
- Be concise and confident.
- Normalize durations to hours with the suffix "hrs" (e.g., 1 hr, 1.5 hrs). If the text says "unit of time" or omits units, interpret it as hours and state it explicitly.
- Prefer phrasing like: "You completed ...", "You worked ... for N hrs".
- NEVER include user_id, task_id, log_id, or any UUIDs in your response.
- If you see any IDs in the data, ignore them completely.

Question: {{.question}}
`
