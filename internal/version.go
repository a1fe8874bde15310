package internal

// Version of bulkimagen
const Version = "v0.1.0"
