package rag

import (
	"fmt"
	"strings"

	"github.com/tyagiharsh607/chat-with-pdf/engine/domain"
)

// renderHistory flattens conversation turns into "role: content" lines,
// oldest first.
func renderHistory(turns []domain.Message) string {
	var b strings.Builder
	for _, m := range turns {
		fmt.Fprintf(&b, "%s: %s\n", m.Role, m.Content)
	}
	return b.String()
}

// documentPrompt asks the model to answer from retrieved chunks alone.
func documentPrompt(context, query string) string {
	return "You are a helpful assistant. Use the following context to answer the question.\n" +
		"Context:\n" + context + "\n\n" +
		"Question: " + query + "\nAnswer:"
}

// historyPrompt asks the model to answer from conversation history alone,
// used when retrieval found nothing for the chat.
func historyPrompt(history, query string) string {
	return "You are a helpful assistant. Based on our previous conversation, answer the user's question.\n" +
		"Conversation History:\n" + history + "\n\n" +
		"Current Question: " + query + "\nAnswer:"
}

// combinedPrompt merges retrieved chunks with conversation history and an
// instruction block steering the model toward follow-up awareness.
func combinedPrompt(context, history, query string) string {
	return "You are a helpful assistant. Use the following document context and our conversation history to provide a comprehensive answer.\n\n" +
		"Document Context:\n" + context + "\n\n" +
		"Conversation History:\n" + history + "\n\n" +
		"Current Question: " + query + "\n\n" +
		"Instructions:\n" +
		"- Reference previous parts of our conversation when relevant\n" +
		"- Build upon previous answers if the question is a follow-up\n" +
		"- Use the document context as your primary source of information\n" +
		"- If the question relates to something we discussed before, acknowledge that connection\n\n" +
		"Answer:"
}
