// Package models lists the image generation models an API key can use,
// for the Imagen (Gemini API) and OpenAI backends.
package models
