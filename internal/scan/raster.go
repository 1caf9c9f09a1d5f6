package scan

import "github.com/marben/fractscan/internal/worklist"

// raster scans row by row. With twoPass the first pass computes the even
// rows and columns and copies each result into its odd neighbours; the
// second pass computes everything the first one skipped.
func (s *scanner) raster(twoPass bool) error {
	it := s.item
	if twoPass && it.Pass == 0 {
		if col, row, err := s.rasterPass(1); err != nil {
			s.requeue(worklist.Item{
				XStart: it.XStart, XStop: it.XStop, XBegin: col,
				YStart: it.YStart, YStop: it.YStop, YBegin: row,
				Sym: it.Sym,
			}, &Cursor{carry: s.it.Carry()})
			return err
		}
		if !s.env.Queue.Empty() && s.postpone(1) {
			return nil
		}
		it.Pass = 1
		it.XBegin, it.YBegin = it.XStart, it.YStart
		s.item = it
		s.resume = nil
	}

	pass := 2
	if !twoPass {
		pass = 0
	}
	col, row, err := s.rasterPass(pass)
	if err != nil {
		stop := it.YStop
		if s.plot.IYStop != it.YStop {
			stop -= row - it.YStart
		}
		s.requeue(worklist.Item{
			XStart: it.XStart, XStop: it.XStop, XBegin: col,
			YStart: row, YStop: stop, YBegin: row,
			Pass: it.Pass, Sym: it.Sym,
		}, &Cursor{carry: s.it.Carry()})
		return err
	}
	return nil
}

// rasterPass runs pass 1 or 2 of the two pass scan, or the whole one pass
// scan for pass 0. On interrupt it returns the pixel to restart at.
func (s *scanner) rasterPass(pass int) (col, row int, err error) {
	it := s.item
	p := s.plot
	inside := s.it.Config().InsideColor
	quick := s.env.Opts.QuickCalc
	resume := s.resume

	for row = it.YBegin; row <= p.IYStop; row++ {
		col = it.XStart
		if row == it.YBegin {
			col = it.XBegin
		}
		if resume != nil {
			s.it.SetCarry(resume.carry)
			resume = nil
		} else {
			s.it.ResetPeriodicity()
		}
		for ; col <= p.IXStop; col++ {
			if quick && s.store.ColorAt(col, row) != inside {
				continue
			}
			if pass == 2 && row&1 == 0 && col&1 == 0 {
				continue
			}
			c, err := s.calc(col, row)
			if err != nil {
				return col, row, err
			}
			if pass != 1 {
				continue
			}
			if row&1 == 0 && row < p.IYStop {
				p.Plot(col, row+1, c)
				if col&1 == 0 && col < p.IXStop {
					p.Plot(col+1, row+1, c)
				}
			}
			if col&1 == 0 && col < p.IXStop {
				col++
				p.Plot(col, row, c)
			}
		}
		if pass == 1 && row&1 == 0 {
			row++
		}
	}
	return 0, 0, nil
}
