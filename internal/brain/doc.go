// Package brain — AI-помощник для текста и вариантов опроса.
//
// Generator абстрагирует провайдера (Gemini через google.golang.org/genai
// или OpenAI через openai-go). Enhancer поверх него реализует
// EnhanceContent и ExtractOptions; ExtractOptions всегда отдаёт 2-4 варианта,
// при сбое модели используя шаблоны по ключевым словам.
package brain
