package algorithms

var stopWords = toSet(
	"a", "an", "and", "are", "as", "at", "be", "been", "but", "by", "can", "could",
	"do", "does", "for", "from", "has", "have", "he", "her", "his", "how", "i", "if",
	"in", "into", "is", "it", "its", "job", "may", "more", "must", "no", "not", "of",
	"on", "or", "our", "she", "should", "so", "such", "than", "that", "the", "their",
	"them", "then", "there", "these", "they", "this", "to", "us", "was", "we", "were",
	"what", "when", "where", "which", "while", "who", "will", "with", "would", "you",
	"your", "all", "any", "about", "also", "etc", "e.g", "i.e", "other", "own", "per",
	"role", "team", "work", "working", "years", "year", "experience", "strong", "good",
	"ability", "looking", "seeking", "plus", "required", "preferred", "including",
	"knowledge", "skills", "using", "well", "new", "join", "candidate", "position",
)

// importantKeywords - технические термины, которые весят вдвое больше
var importantKeywords = toSet(
	// языки
	"python", "java", "javascript", "typescript", "go", "golang", "rust", "c++", "c#",
	"ruby", "php", "kotlin", "swift", "scala", "sql", "html", "css", "bash",
	// фреймворки
	"react", "angular", "vue", "node", "node.js", "express", "django", "flask",
	"fastapi", "spring", "rails", "laravel", ".net", "next.js", "graphql", "grpc",
	// данные
	"postgresql", "postgres", "mysql", "mongodb", "redis", "elasticsearch", "kafka",
	"rabbitmq", "spark", "hadoop", "pandas", "tensorflow", "pytorch",
	// инфраструктура
	"aws", "azure", "gcp", "docker", "kubernetes", "k8s", "terraform", "ansible",
	"jenkins", "linux", "git", "ci", "cd", "devops", "microservices",
	"serverless", "nginx",
	// практики
	"agile", "scrum", "rest", "api", "tdd", "machine", "learning", "ml", "ai",
	"security", "testing",
)

func toSet(words ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}
