package sql

// Parse is the package's entry point, turning one statement into its AST.
func Parse(source string) (*Code, error) {
	return newParser(source).Parse()
}
