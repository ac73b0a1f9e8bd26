package pipeline

// sourceSelectionPrompt asks the model to shortlist the apps relevant to a
// question. The "none" token keeps the parse unambiguous when nothing fits.
const sourceSelectionPrompt = `You are given a list of app names from product reviews.
Return ONLY the names of the apps that are relevant to the question.
If none are relevant, return "none".
Do not explain your reasoning.

Apps:
%s

Question:
%s

Return format (comma-separated):
app1, app2, app3`

// ragPrompt constrains the answer to the retrieved review excerpts.
const ragPrompt = `You are a helpful assistant analyzing product reviews. Use the following review excerpts to answer the question.

Rules:
1. Be concise and direct.
2. Base your answer ONLY on the provided reviews.
3. If the reviews don't contain relevant information, say so.
4. Mention specific apps when relevant.
5. Include sentiment (positive/negative) when discussing features.

Reviews:
%s

Question: %s

Answer:`
