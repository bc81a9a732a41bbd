// Package testutil contains helper builders and fakes used across tests to
// reduce boilerplate when constructing messages, histories and agents. They
// are not intended for production usage.
package testutil
