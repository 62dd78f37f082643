// Assembles interactive development environment descriptions per platform.
package shell
