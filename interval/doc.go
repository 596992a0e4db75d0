/*Package interval implements the coordinate helpers shared by the depth
  tracker, the coverage-gap scanner and the pileup window: 1-based closed
  intervals, margin expansion and clipping, region-string parsing, and a
  Targets set of merged regions loaded from a BED file.
  It assumes every position fits in a PosType, which is currently defined as
  int32 since that's what BAM files are limited to.
*/
package interval
