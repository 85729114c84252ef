package utils

//run redis (run store on db 0, change log stream on db 1)
//docker run -p 6379:6379 -d redis

//run qdrant
//docker run -p 6333:6333 -p 6334:6334 -v vectorDBData:/qdrant/storage qdrant/qdrant

//run ollama with the default embedding model
//docker run -d -p 11434:11434 --name ollama ollama/ollama && docker exec ollama ollama pull qwen3-embedding:0.6b

//publish a synthetic change event
//go run ./cmd/ragctl publish --doc-id d1 --knowledge-id kb1 --file notes.md --locator file:///tmp/notes.md
