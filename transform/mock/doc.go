// Package mock provides test doubles for the transform package.
package mock
