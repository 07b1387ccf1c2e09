package codemod

type Config struct {
	Use     string
	Short   string
	Long    string
	Version string

	DefaultRoot      string
	DefaultFormatter string
	DefaultLogLevel  string
}
