// Package dedupe drops repeated form submissions by nonce.
package dedupe
